package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/twieo/internal/domain/route"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/logger"
)

var now = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "runner-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestClient(url string) *Client {
	return NewClient(url, 2*time.Second, logger.NewNop(), WithClock(func() time.Time { return now }))
}

func sampleRecord() run.Record {
	return run.NewRecord(run.Stats{
		DistanceKm:     1.5,
		ElapsedSeconds: 540,
		PaceMinPerKm:   6,
		Calories:       97.5,
	}, []shared.Coordinate{{Latitude: 37.5665, Longitude: 126.978}}, now)
}

func TestCheckToken(t *testing.T) {
	assert.True(t, shared.IsCode(CheckToken("", now), shared.ErrCodeMissingCredential))
	assert.True(t, shared.IsCode(CheckToken("   ", now), shared.ErrCodeMissingCredential))

	assert.NoError(t, CheckToken("opaque-session-token", now))
	assert.NoError(t, CheckToken(signedToken(t, now.Add(time.Hour)), now))

	err := CheckToken(signedToken(t, now.Add(-time.Minute)), now)
	assert.True(t, shared.IsCode(err, shared.ErrCodeCredentialExpired))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.NoError(t, CheckToken(noExp, now))
}

func TestSubmitRun_Success(t *testing.T) {
	token := signedToken(t, now.Add(time.Hour))
	record := sampleRecord()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/runs", r.URL.Path)
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL+"/").SubmitRun(context.Background(), token, record))

	assert.Equal(t, 1.5, got["distance"])
	assert.Equal(t, 540.0, got["duration"])
	assert.Equal(t, 6.0, got["pace"])
	assert.Equal(t, 98.0, got["calories"])
	assert.Equal(t, []any{map[string]any{"latitude": 37.5665, "longitude": 126.978}}, got["route"])
	assert.Contains(t, got, "date")
}

func TestSubmitRun_Failures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	err := client.SubmitRun(ctx, "valid-token", sampleRecord())
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrCodeSubmissionFailed))
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 1, calls)

	err = client.SubmitRun(ctx, "", sampleRecord())
	assert.True(t, shared.IsCode(err, shared.ErrCodeMissingCredential))

	err = client.SubmitRun(ctx, signedToken(t, now.Add(-time.Hour)), sampleRecord())
	assert.True(t, shared.IsCode(err, shared.ErrCodeCredentialExpired))

	assert.Equal(t, 1, calls, "no request without a usable credential")
}

func TestSubmitRun_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	err := newTestClient(url).SubmitRun(context.Background(), "valid-token", sampleRecord())
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrCodeSubmissionFailed))
}

func TestGenerateCourse(t *testing.T) {
	req := route.CourseRequest{Lat: 37.5665, Lon: 126.978, DistanceKm: 3}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate_course", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 37.5665, body["lat"])
		assert.Equal(t, 126.978, body["lon"])
		assert.Equal(t, 3.0, body["distance"])
		assert.Equal(t, "none", body["preference"])

		_, _ = w.Write([]byte(`{"status":"success","routes":[
			{"id":"A","route":[{"latitude":37.5665,"longitude":126.978},{"latitude":37.57,"longitude":126.98}],"features":{"points":2,"estimated_time":0.2}},
			{"id":"B","route":[],"features":{"points":0,"estimated_time":0}}
		]}`))
	}))
	defer server.Close()

	courses, err := newTestClient(server.URL).GenerateCourse(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "A", courses[0].ID)
	assert.Equal(t, route.Point{Latitude: 37.57, Longitude: 126.98}, courses[0].Route[1])
	assert.Equal(t, 2, courses[0].Features.Points)
	assert.InDelta(t, 0.2, courses[0].Features.EstimatedTime, 1e-9)
}

func TestGenerateCourse_Errors(t *testing.T) {
	req := route.CourseRequest{Lat: 37.5665, Lon: 126.978, DistanceKm: 3, Preference: route.PreferenceQuiet}

	tests := []struct {
		name   string
		status int
		body   string
		code   int
	}{
		{"bad weather", http.StatusOK, `{"status":"bad_weather","message":"heavy rain"}`, shared.ErrCodeBadWeather},
		{"server error status", http.StatusInternalServerError, `{"status":"error","message":"graph failed"}`, shared.ErrCodeCourseRejected},
		{"not implemented", http.StatusNotImplemented, ``, shared.ErrCodeCourseRejected},
		{"no routes", http.StatusOK, `{"status":"success","routes":[]}`, shared.ErrCodeNoCourse},
		{"garbage", http.StatusBadGateway, `<html>`, shared.ErrCodeCourseRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).GenerateCourse(context.Background(), req)
			require.Error(t, err)
			assert.True(t, shared.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestGenerateCourse_InvalidRequest(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.GenerateCourse(context.Background(), route.CourseRequest{Lat: 37, Lon: 127})
	assert.True(t, shared.IsCode(err, shared.ErrCodeInvalidInput))
}

func TestClient_ImplementsCourseGenerator(t *testing.T) {
	var _ route.CourseGenerator = newTestClient("http://localhost")
}
