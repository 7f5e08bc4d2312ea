package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

// HTTPModelConfig configures the trained-model client.
type HTTPModelConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPModel calls an external model server that hosts the trained intent
// classifier. Absence (server down, bad response) is reported as an error;
// the cascade treats it as a soft "tier unavailable" signal.
type HTTPModel struct {
	config HTTPModelConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPModel(cfg HTTPModelConfig, log logger.Logger) *HTTPModel {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &HTTPModel{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithFields(map[string]interface{}{"component": "intent_model"}),
	}
}

// Predict posts the utterance to the model server and parses the predicted
// intent. The prediction is trusted once present; confidence is logged only.
func (m *HTTPModel) Predict(ctx context.Context, text string) (Intent, error) {
	body, _ := json.Marshal(map[string]interface{}{"text": text})

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/predict", bytes.NewBuffer(body))
	if err != nil {
		return Unknown, stderrors.NewIntentModelUnavailableError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Unknown, stderrors.NewIntentModelUnavailableError(ctx.Err())
			}
		}

		resp, lastErr = m.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return Unknown, stderrors.NewIntentModelUnavailableError(context.DeadlineExceeded)
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil || resp == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no successful response after retries")
		}
		return Unknown, stderrors.NewIntentModelUnavailableError(lastErr)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return Unknown, stderrors.NewIntentModelUnavailableError(err)
	}

	in, ok := Parse(apiResponse.Intent)
	if !ok {
		return Unknown, stderrors.NewIntentModelUnavailableError(fmt.Errorf("unexpected intent %q", apiResponse.Intent))
	}

	m.logger.Debug("model prediction", map[string]interface{}{
		"intent":     apiResponse.Intent,
		"confidence": apiResponse.Confidence,
	})
	return in, nil
}
