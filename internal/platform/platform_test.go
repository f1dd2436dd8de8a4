package platform

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/logger"
)

var start = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

// track moves roughly 11 m east per sample
func track(n int) []run.GeoSample {
	out := make([]run.GeoSample, n)
	for i := range out {
		out[i] = run.NewGeoSample(37.5665, 126.9780+float64(i)*0.000125, start.Add(time.Duration(i)*time.Second))
	}
	return out
}

func drain(t *testing.T, sub Subscription) []run.GeoSample {
	t.Helper()
	var got []run.GeoSample
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-sub.C():
			if !ok {
				return got
			}
			got = append(got, s)
		case <-timeout:
			t.Fatal("replay did not finish")
			return got
		}
	}
}

func TestDefaultWatchOptions(t *testing.T) {
	opts := DefaultWatchOptions()
	assert.True(t, opts.HighAccuracy)
	assert.Equal(t, time.Second, opts.Interval)
	assert.Equal(t, 5.0, opts.MinDisplacementM)
}

func TestNoopProvider(t *testing.T) {
	ctx := context.Background()
	p := NoopProvider{}

	granted, err := p.RequestPermission(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	_, err = p.CurrentPosition(ctx)
	assert.True(t, shared.IsCode(err, shared.ErrCodeNotFound))

	sub, err := p.Subscribe(ctx, DefaultWatchOptions())
	require.NoError(t, err)

	select {
	case <-sub.C():
		t.Fatal("noop provider delivered a sample")
	case <-time.After(20 * time.Millisecond):
	}

	sub.Close()
	sub.Close()
}

func TestReplayProvider_DeliversWholeTrack(t *testing.T) {
	samples := track(5)
	p := NewReplayProvider(samples)

	pos, err := p.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, samples[0], pos)

	sub, err := p.Subscribe(context.Background(), WatchOptions{})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, samples, drain(t, sub))
}

func TestReplayProvider_FiltersSmallDisplacement(t *testing.T) {
	samples := []run.GeoSample{
		run.NewGeoSample(0, 0, start),
		run.NewGeoSample(0, 0.00001, start.Add(time.Second)),  // ~1 m
		run.NewGeoSample(0, 0.0001, start.Add(2*time.Second)), // ~11 m
	}
	p := NewReplayProvider(samples)

	sub, err := p.Subscribe(context.Background(), WatchOptions{MinDisplacementM: 5})
	require.NoError(t, err)
	defer sub.Close()

	got := drain(t, sub)
	require.Len(t, got, 2)
	assert.Equal(t, samples[2], got[1])
}

func TestReplayProvider_PacedByInterval(t *testing.T) {
	p := NewReplayProvider(track(3))

	began := time.Now()
	sub, err := p.Subscribe(context.Background(), WatchOptions{Interval: 30 * time.Millisecond})
	require.NoError(t, err)
	defer sub.Close()

	assert.Len(t, drain(t, sub), 3)
	assert.GreaterOrEqual(t, time.Since(began), 50*time.Millisecond)
}

func TestReplayProvider_CloseStopsDelivery(t *testing.T) {
	p := NewReplayProvider(track(100), WithSpeedup(10))

	sub, err := p.Subscribe(context.Background(), WatchOptions{Interval: 100 * time.Millisecond})
	require.NoError(t, err)

	<-sub.C()
	sub.Close()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("sample delivered after Close")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReplayProvider_ResumesWhereItStopped(t *testing.T) {
	samples := track(4)
	p := NewReplayProvider(samples)

	first, err := p.Subscribe(context.Background(), WatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, samples[0], <-first.C())
	assert.Equal(t, samples[1], <-first.C())
	first.Close()

	select {
	case <-p.Finished():
		t.Fatal("finished before the track was delivered")
	default:
	}

	second, err := p.Subscribe(context.Background(), WatchOptions{})
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, samples[2:], drain(t, second))

	select {
	case <-p.Finished():
	case <-time.After(time.Second):
		t.Fatal("Finished not closed")
	}
}

func TestLoadTrack(t *testing.T) {
	samples, err := LoadTrack(strings.NewReader(`[
		{"latitude":37.5665,"longitude":126.978,"timestamp":"2024-05-01T06:00:00Z"},
		{"latitude":37.5675,"longitude":126.979,"timestamp":"2024-05-01T06:00:01Z"}
	]`))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 126.979, samples[1].Longitude)
	assert.True(t, start.Add(time.Second).Equal(samples[1].Timestamp))

	_, err = LoadTrack(strings.NewReader(`{"latitude":1}`))
	assert.Error(t, err)

	_, err = LoadTrack(strings.NewReader(`[{"latitude":95,"longitude":0}]`))
	assert.True(t, shared.IsCode(err, shared.ErrCodeInvalidInput))
}

func TestReplayProvider_Permission(t *testing.T) {
	granted, err := NewReplayProvider(nil, WithPermission(false)).RequestPermission(context.Background())
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = NewReplayProvider(nil).CurrentPosition(context.Background())
	assert.Error(t, err)
}

func TestManualProvider(t *testing.T) {
	ctx := context.Background()
	p := NewManualProvider()

	assert.False(t, p.Push(track(1)[0]), "push without subscriber")

	_, err := p.CurrentPosition(ctx)
	assert.Error(t, err)
	p.SetCurrentPosition(track(1)[0])
	pos, err := p.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, track(1)[0], pos)

	p.SetPermission(false)
	granted, _ := p.RequestPermission(ctx)
	assert.False(t, granted)

	sub, err := p.Subscribe(ctx, DefaultWatchOptions())
	require.NoError(t, err)
	assert.True(t, p.Subscribed())

	received := make(chan run.GeoSample, 1)
	go func() { received <- <-sub.C() }()

	sample := track(2)[1]
	assert.True(t, p.Push(sample))
	assert.Equal(t, sample, <-received)

	sub.Close()
	assert.False(t, p.Subscribed())
	assert.False(t, p.Push(sample))
}

func TestSinks(t *testing.T) {
	rec := &RecordingSink{}
	rec.Speak("하나", "ko-KR")
	rec.Speak("two", "en-US")

	assert.Equal(t, []string{"하나", "two"}, rec.Texts())
	assert.Equal(t, Utterance{Text: "two", Locale: "en-US"}, rec.Spoken()[1])

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: logger.InfoLevel, Encoding: "json", Output: &buf})
	require.NoError(t, err)

	NewLogSink(log).Speak("hello", "en-US")
	_ = log.Sync()
	assert.Contains(t, buf.String(), `"text":"hello"`)
	assert.Contains(t, buf.String(), `"component":"speech"`)

	NoopSink{}.Speak("ignored", "en-US")
}
