package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/ports"
)

const (
	// DefaultHistoryLimit applies when ListHistory is called without a limit
	DefaultHistoryLimit = 50
	maxHistoryLimit     = 500

	qrTextKeywordScore = 15
	qrTextMaxScore     = 50
)

var (
	// ErrHistoryDisabled is returned by history operations when no store is configured
	ErrHistoryDisabled = errors.New("scan history is disabled")

	// ErrInvalidRecord marks a history record that cannot be stored
	ErrInvalidRecord = errors.New("invalid scan record")
)

var qrTextKeywords = []string{
	"password", "login", "verify", "account", "urgent",
	"suspended", "confirm", "security", "update", "click",
}

// URLScanner produces the verdict of a single URL
type URLScanner interface {
	Scan(ctx context.Context, rawURL string) domain.RiskVerdict
}

// EmailComposer produces the verdict of an email
type EmailComposer interface {
	Compose(ctx context.Context, msg domain.EmailContext) domain.EmailVerdict
}

// ScanService is the entry point for every scan the transports expose
//
// Scans always return a verdict. When a user ID is supplied the verdict is
// also written to the history store; a failed write is logged and does not
// change the verdict.
type ScanService struct {
	urls    URLScanner
	emails  EmailComposer
	tracer  ports.RedirectTracer
	storage ports.Storage
	logger  *slog.Logger
}

// NewScanService creates a new scan service with dependency injection; storage may be nil
// and a nil tracer leaves URL verdicts without a redirect chain
func NewScanService(
	urls URLScanner,
	emails EmailComposer,
	tracer ports.RedirectTracer,
	storage ports.Storage,
	logger *slog.Logger,
) *ScanService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ScanService{
		urls:    urls,
		emails:  emails,
		tracer:  tracer,
		storage: storage,
		logger:  logger.With("component", "scan_service"),
	}
}

// ScanURL scores one URL and attaches its redirect chain
func (s *ScanService) ScanURL(ctx context.Context, userID, rawURL string) domain.RiskVerdict {
	v := s.scanURL(ctx, rawURL)
	s.record(ctx, userID, domain.ScanTypeURL, rawURL, v, v.Score, v.Label)
	return v
}

// scanURL runs the detectors and the redirect trace concurrently
func (s *ScanService) scanURL(ctx context.Context, rawURL string) domain.RiskVerdict {
	if s.tracer == nil {
		return s.urls.Scan(ctx, rawURL)
	}

	var chain domain.RedirectChain
	traced := make(chan struct{})
	go func() {
		defer close(traced)
		chain = s.tracer.Trace(ctx, rawURL)
	}()

	v := s.urls.Scan(ctx, rawURL)
	<-traced

	if v.Label != domain.LabelInvalid {
		v.RedirectChain = &chain
	}
	return v
}

// ScanEmail scores one email
func (s *ScanService) ScanEmail(ctx context.Context, userID string, msg domain.EmailContext) domain.EmailVerdict {
	v := s.emails.Compose(ctx, msg)

	target := msg.Subject
	if target == "" {
		target = msg.Sender
	}
	s.record(ctx, userID, domain.ScanTypeEmail, target, v, v.FinalScore, v.FinalLabel)
	return v
}

// TraceRedirects follows the redirect chain of a URL
func (s *ScanService) TraceRedirects(ctx context.Context, rawURL string) domain.RedirectChain {
	return s.tracer.Trace(ctx, rawURL)
}

// ScanQRContent classifies text decoded from a QR code and scores it
//
// Content that looks like a URL goes through ScanURL; anything else is
// scored on a short keyword list, capped below the phishing threshold.
func (s *ScanService) ScanQRContent(ctx context.Context, userID, decoded string) domain.QRVerdict {
	content := strings.TrimSpace(decoded)
	if content == "" {
		return domain.QRVerdict{
			Type:    domain.QRContentInvalid,
			Message: "No QR content to analyze.",
			Label:   domain.LabelInvalid,
			Score:   0,
			Reasons: []string{"QR code content is empty"},
		}
	}

	var v domain.QRVerdict
	if looksLikeURL(content) {
		report := s.scanURL(ctx, content)
		v = domain.QRVerdict{
			Decoded: content,
			Type:    domain.QRContentURL,
			Message: "QR code contains a URL. Threat analysis completed.",
			URL:     report.URL,
			Label:   report.Label,
			Score:   report.Score,
			Reasons: report.Reasons,
			Report:  &report,
		}
	} else {
		v = scoreQRText(content)
	}

	s.record(ctx, userID, domain.ScanTypeQR, content, v, v.Score, v.Label)
	return v
}

func looksLikeURL(content string) bool {
	lower := strings.ToLower(content)
	for _, prefix := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return strings.Contains(content, ".")
}

func scoreQRText(content string) domain.QRVerdict {
	lower := strings.ToLower(content)
	reasons := make([]string, 0)
	for _, kw := range qrTextKeywords {
		if strings.Contains(lower, kw) {
			reasons = append(reasons, fmt.Sprintf("Contains suspicious keyword: '%s'", kw))
		}
	}

	score := min(qrTextMaxScore, len(reasons)*qrTextKeywordScore)
	if len(reasons) == 0 {
		reasons = append(reasons, "No suspicious patterns detected in text content")
	}
	return domain.QRVerdict{
		Decoded: content,
		Type:    domain.QRContentText,
		Message: "QR code contains text data (not a URL).",
		Label:   domain.LabelFromScore(score),
		Score:   score,
		Reasons: reasons,
	}
}

// SaveHistory stores a record submitted by a client; ID and CreatedAt are filled when empty
func (s *ScanService) SaveHistory(ctx context.Context, rec *domain.ScanRecord) error {
	if s.storage == nil {
		return ErrHistoryDisabled
	}
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.RiskLabel == "" {
		rec.RiskLabel = domain.LabelFromScore(rec.RiskScore)
	}
	if rec.Result == nil {
		rec.Result = map[string]any{}
	}

	if err := s.storage.SaveScan(ctx, rec); err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// ListHistory returns a user's most recent scans, newest first
func (s *ScanService) ListHistory(ctx context.Context, userID string, limit int) ([]domain.ScanRecord, error) {
	if s.storage == nil {
		return nil, ErrHistoryDisabled
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRecord)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	records, err := s.storage.ListScans(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return records, nil
}

func validateRecord(rec *domain.ScanRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: empty record", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRecord)
	}
	switch rec.ScanType {
	case domain.ScanTypeURL, domain.ScanTypeEmail, domain.ScanTypeQR:
	default:
		return fmt.Errorf("%w: unknown scan type %q", ErrInvalidRecord, rec.ScanType)
	}
	if rec.RiskScore < 0 || rec.RiskScore > domain.MaxScore {
		return fmt.Errorf("%w: risk score %d out of range", ErrInvalidRecord, rec.RiskScore)
	}
	return nil
}

// record writes a scan to history; errors are logged, never returned
func (s *ScanService) record(ctx context.Context, userID, scanType, target string, verdict any, score int, label domain.Label) {
	if s.storage == nil || strings.TrimSpace(userID) == "" {
		return
	}

	result, err := toMap(verdict)
	if err != nil {
		s.logger.Warn("failed to encode scan for history", "scan_type", scanType, "error", err)
		return
	}

	rec := &domain.ScanRecord{
		ID:        uuid.New(),
		UserID:    userID,
		ScanType:  scanType,
		Target:    target,
		Result:    result,
		RiskScore: score,
		RiskLabel: label,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.SaveScan(ctx, rec); err != nil {
		s.logger.Warn("failed to save scan history", "scan_type", scanType, "user_id", userID, "error", err)
	}
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
