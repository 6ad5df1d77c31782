package detector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRemoteDetector_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/detect", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "beach.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"detection_count": 2,
			"severity_level": "red",
			"detections": [
				{"class": "plastic_bottle", "confidence": 0.91, "bbox": [0.1, 0.2, 0.3, 0.4]},
				{"class": "fishing_net", "confidence": 0.77, "bbox": [0.5, 0.5, 0.2, 0.2]}
			],
			"annotated_image": "data:image/jpeg;base64,aGVsbG8="
		}`))
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, 5*time.Second, newTestLogger())

	result, err := d.Detect(context.Background(), []byte("fake-image"), "beach.jpg")
	require.NoError(t, err)
	require.Equal(t, 2, result.DetectionCount)
	require.Len(t, result.Detections, 2)
	require.Equal(t, "plastic_bottle", result.Detections[0].Class)
	require.Equal(t, "data:image/jpeg;base64,aGVsbG8=", result.AnnotatedImage)
}

func TestRemoteDetector_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, 5*time.Second, newTestLogger())

	_, err := d.Detect(context.Background(), []byte("fake-image"), "beach.jpg")
	require.ErrorIs(t, err, ErrDetectionFailed)
}

func TestRemoteDetector_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, 5*time.Second, newTestLogger())

	_, err := d.Detect(context.Background(), []byte("fake-image"), "beach.jpg")
	require.ErrorIs(t, err, ErrDetectionFailed)
}

func TestRemoteDetector_MissingCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detections": []}`))
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, 5*time.Second, newTestLogger())

	_, err := d.Detect(context.Background(), []byte("fake-image"), "beach.jpg")
	require.ErrorIs(t, err, ErrDetectionFailed)
}

func TestRemoteDetector_NegativeCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detection_count": -3}`))
	}))
	defer srv.Close()

	d := NewRemoteDetector(srv.URL, 5*time.Second, newTestLogger())

	_, err := d.Detect(context.Background(), []byte("fake-image"), "beach.jpg")
	require.ErrorIs(t, err, ErrDetectionFailed)
}

func TestRemoteDetector_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewRemoteDetector(srv.URL, time.Second, newTestLogger())

	_, err := d.Detect(context.Background(), []byte("fake-image"), "beach.jpg")
	require.ErrorIs(t, err, ErrDetectionFailed)
}
