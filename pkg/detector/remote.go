package detector

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type detectResponse struct {
	DetectionCount  *int        `json:"detection_count"`
	SeverityLevel   string      `json:"severity_level"`
	SeverityMessage string      `json:"severity_message"`
	Detections      []Detection `json:"detections"`
	AnnotatedImage  string      `json:"annotated_image"`
	Filename        string      `json:"filename"`
}

type remoteDetector struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

func NewRemoteDetector(baseURL string, timeout time.Duration, log *logrus.Logger) IDetector {
	return &remoteDetector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (d *remoteDetector) Detect(ctx context.Context, image []byte, filename string) (*Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: create form file: %v", ErrDetectionFailed, err)
	}

	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("%w: copy image data: %v", ErrDetectionFailed, err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: close multipart writer: %v", ErrDetectionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDetectionFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"url":   d.baseURL + "/detect",
			"error": err.Error(),
		}).Warn("Detection request transport error")
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		d.log.WithFields(logrus.Fields{
			"url":    d.baseURL + "/detect",
			"status": resp.StatusCode,
		}).Warn("Detection request returned non-success status")
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDetectionFailed, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrDetectionFailed, err)
	}

	var decoded detectResponse
	if err := jsoniter.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDetectionFailed, err)
	}

	if decoded.DetectionCount == nil {
		return nil, fmt.Errorf("%w: response is missing detection_count", ErrDetectionFailed)
	}

	if *decoded.DetectionCount < 0 {
		return nil, fmt.Errorf("%w: negative detection_count %d", ErrDetectionFailed, *decoded.DetectionCount)
	}

	// severity_level in the response is ignored on purpose: severity is
	// always recomputed locally from the count.
	return &Result{
		DetectionCount: *decoded.DetectionCount,
		Detections:     decoded.Detections,
		AnnotatedImage: decoded.AnnotatedImage,
	}, nil
}
