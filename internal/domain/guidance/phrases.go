package guidance

import "fmt"

// DefaultLocale is the locale used when none or an unknown one is configured
const DefaultLocale = "ko-KR"

// Phrasebook renders announcements for one locale
type Phrasebook struct {
	Locale    string
	Intro     string
	Finish    string
	RightTurn string
	LeftTurn  string
	kilometer func(km, paceMin, paceSec int) string
}

// Kilometer renders a kilometer callout
func (p Phrasebook) Kilometer(km, paceMin, paceSec int) string {
	return p.kilometer(km, paceMin, paceSec)
}

var phrasebooks = map[string]Phrasebook{
	"ko-KR": {
		Locale:    "ko-KR",
		Intro:     "러닝을 시작합니다. 화이팅!",
		Finish:    "러닝을 종료합니다. 수고하셨습니다.",
		RightTurn: "곧 우회전입니다.",
		LeftTurn:  "곧 좌회전입니다.",
		kilometer: func(km, paceMin, paceSec int) string {
			return fmt.Sprintf("%d킬로미터 지점입니다. 현재 페이스는 %d분 %d초입니다.", km, paceMin, paceSec)
		},
	},
	"en-US": {
		Locale:    "en-US",
		Intro:     "Starting your run. Let's go!",
		Finish:    "Run finished. Great job.",
		RightTurn: "Upcoming right turn.",
		LeftTurn:  "Upcoming left turn.",
		kilometer: func(km, paceMin, paceSec int) string {
			unit := "kilometers"
			if km == 1 {
				unit = "kilometer"
			}
			return fmt.Sprintf("%d %s. Current pace %d minutes %d seconds per kilometer.", km, unit, paceMin, paceSec)
		},
	},
}

// PhrasebookFor returns the phrasebook for locale, falling back to DefaultLocale
func PhrasebookFor(locale string) Phrasebook {
	if p, ok := phrasebooks[locale]; ok {
		return p
	}
	return phrasebooks[DefaultLocale]
}
