package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"minischeduler/internal/logger"
	"minischeduler/internal/models"
)

const password = "validate-password"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// ConfigFromEnv reads VALIDATE_URL and VALIDATE_TIMEOUT_SEC.
func ConfigFromEnv() Config {
	cfg := Config{BaseURL: "http://localhost:8081", Timeout: 10 * time.Second}
	if v := os.Getenv("VALIDATE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("VALIDATE_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}

// Validator drives the reservation workflow end to end against a running API
type Validator struct {
	baseURL string
	client  *http.Client
}

func NewValidator(cfg Config) *Validator {
	return &Validator{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Run validates the API at cfg.BaseURL.
func Run(ctx context.Context, cfg Config) error {
	return NewValidator(cfg).ValidateAll(ctx)
}

type account struct {
	email string
}

// ValidateAll registers a fresh organizer and attendee and walks the
// reservation lifecycle, checking every status code along the way.
func (v *Validator) ValidateAll(ctx context.Context) error {
	log := logger.Get().With("base_url", v.baseURL)
	log.Info("Starting API validation")

	run := uuid.NewString()[:8]
	organizer := account{email: fmt.Sprintf("organizer-%s@validate.local", run)}
	attendee := account{email: fmt.Sprintf("attendee-%s@validate.local", run)}

	if err := v.signUp(ctx, organizer, models.RoleAdmin); err != nil {
		return err
	}
	if err := v.signUp(ctx, attendee, models.RoleUser); err != nil {
		return err
	}

	if err := v.expect(ctx, attendee, http.MethodPost, "/api/events", models.CreateEventRequest{Title: "x"}, http.StatusForbidden, nil); err != nil {
		return err
	}

	next := time.Now().AddDate(0, 1, 0)
	start := time.Date(next.Year(), next.Month(), 15, 19, 0, 0, 0, time.UTC)
	var created models.CreateEventResponse
	if err := v.expect(ctx, organizer, http.MethodPost, "/api/events", models.CreateEventRequest{
		Title:         "Validation Concert " + run,
		ScheduleStart: start,
		ScheduleEnd:   start.Add(2 * time.Hour),
		Capacity:      10,
	}, http.StatusCreated, &created); err != nil {
		return err
	}

	reserve := models.CreateReservationRequest{EventID: created.ID, ScheduleStart: start}
	var first models.Reservation
	if err := v.expect(ctx, attendee, http.MethodPost, "/api/reservations", reserve, http.StatusCreated, &first); err != nil {
		return err
	}
	if first.Status != models.StatusPending {
		return fmt.Errorf("POST /api/reservations: expected %s, got %s", models.StatusPending, first.Status)
	}
	if err := v.expect(ctx, attendee, http.MethodPost, "/api/reservations", reserve, http.StatusConflict, nil); err != nil {
		return err
	}

	decision := func(id int64) string { return fmt.Sprintf("/api/reservations/%d/decision", id) }
	if err := v.expect(ctx, attendee, http.MethodPost, decision(first.ID), models.DecisionRequest{Decision: "accept"}, http.StatusForbidden, nil); err != nil {
		return err
	}
	if err := v.expect(ctx, organizer, http.MethodPost, decision(first.ID), models.DecisionRequest{Decision: "refuse"}, http.StatusOK, nil); err != nil {
		return err
	}
	if err := v.expect(ctx, organizer, http.MethodPost, decision(first.ID), models.DecisionRequest{Decision: "accept"}, http.StatusPreconditionFailed, nil); err != nil {
		return err
	}

	var second models.Reservation
	if err := v.expect(ctx, attendee, http.MethodPost, "/api/reservations", reserve, http.StatusCreated, &second); err != nil {
		return err
	}
	if err := v.expect(ctx, organizer, http.MethodPost, decision(second.ID), models.DecisionRequest{Decision: "accept"}, http.StatusOK, nil); err != nil {
		return err
	}
	if err := v.expect(ctx, attendee, http.MethodDelete, fmt.Sprintf("/api/reservations/%d", second.ID), nil, http.StatusPreconditionFailed, nil); err != nil {
		return err
	}

	var summary models.ProgressSummary
	if err := v.expect(ctx, organizer, http.MethodGet, "/api/admin/summary", nil, http.StatusOK, &summary); err != nil {
		return err
	}
	if summary.Accepted < 1 || summary.Refused < 1 {
		return fmt.Errorf("GET /api/admin/summary: expected accepted and refused reservations, got %+v", summary)
	}

	log.Info("API validation passed", "organizer", organizer.email, "attendee", attendee.email)
	return nil
}

func (v *Validator) signUp(ctx context.Context, a account, role models.Role) error {
	return v.expect(ctx, account{}, http.MethodPost, "/api/users", models.RegisterUserRequest{
		Email:    a.email,
		Password: password,
		FullName: "Validation " + string(role),
		Role:     string(role),
	}, http.StatusCreated, nil)
}

// expect sends body as a, checks the status and decodes the response into out.
func (v *Validator) expect(ctx context.Context, a account, method, path string, body any, status int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.email != "" {
		req.SetBasicAuth(a.email, password)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}

	logger.Get().Debug("Validated endpoint", "method", method, "path", path, "status", status)
	return nil
}
