package platform

import (
	"sync"

	"go.uber.org/zap"

	"github.com/danghamo/twieo/pkg/logger"
)

// SpeechSink is the host text-to-speech capability. Speak must not block the
// caller for the duration of the utterance.
type SpeechSink interface {
	Speak(text, locale string)
}

// LogSink writes utterances to the log instead of speaking them
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a sink logging at info level
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &LogSink{logger: log.WithComponent("speech")}
}

// Speak logs the utterance
func (s *LogSink) Speak(text, locale string) {
	s.logger.Info("Speak", zap.String("text", text), zap.String("locale", locale))
}

// Utterance is one recorded Speak call
type Utterance struct {
	Text   string
	Locale string
}

// RecordingSink keeps every utterance in memory
type RecordingSink struct {
	mu     sync.Mutex
	spoken []Utterance
}

// Speak records the utterance
func (s *RecordingSink) Speak(text, locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, Utterance{Text: text, Locale: locale})
}

// Spoken returns a copy of everything said so far
func (s *RecordingSink) Spoken() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Utterance, len(s.spoken))
	copy(out, s.spoken)
	return out
}

// Texts returns only the spoken texts
func (s *RecordingSink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.spoken))
	for _, u := range s.spoken {
		out = append(out, u.Text)
	}
	return out
}
