// internal/browser/session.go
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Session wraps one browser tab and implements schemas.BrowserSession.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	screenshotCount int

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.BrowserSession = (*Session)(nil)

func newSession(ctx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", id)),
	}
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string { return s.id }

// Navigate loads the URL and waits for the document body plus the configured
// post-load settle time.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := s.combined(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Info("Navigating.", zap.String("url", url))
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	if s.cfg.PostLoadWait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PostLoadWait):
		}
	}
	return nil
}

// Observe captures the page snapshot: URL, title, readiness, a bounded
// sample of interactive elements, and a fresh screenshot. Individual field
// failures degrade to empty values rather than failing the observation.
func (s *Session) Observe(ctx context.Context) (*schemas.PageObservation, error) {
	obsCtx, cancel := s.combined(ctx, 30*time.Second)
	defer cancel()

	obs := &schemas.PageObservation{
		ElementCounts: map[string]int{},
	}

	var raw pageInfo
	if err := chromedp.Run(obsCtx,
		chromedp.Location(&obs.URL),
		chromedp.Title(&obs.Title),
		chromedp.Evaluate(pageInfoScript(s.cfg.ElementSampleSize), &raw),
	); err != nil {
		return nil, fmt.Errorf("failed to observe page: %w", err)
	}

	obs.ReadyState = raw.ReadyState
	for _, el := range raw.Elements {
		obs.ElementCounts[el.Kind]++
		obs.Elements = append(obs.Elements, el)
	}
	for kind, count := range raw.Counts {
		// Full per-kind totals, not just the sampled ones.
		obs.ElementCounts[kind] = count
	}

	path, b64, err := s.captureScreenshot(obsCtx)
	if err != nil {
		// Observation without a screenshot is still usable for
		// fingerprinting; log and continue.
		s.logger.Warn("Failed to capture screenshot.", zap.Error(err))
	} else {
		obs.ScreenshotPath = path
		obs.ScreenshotB64 = b64
	}
	return obs, nil
}

// ExecuteScript runs code inside the page wrapped in the interaction
// harness. A result string starting with "Error:" means the script itself
// failed; that is reported as (false, msg, nil) so the caller can feed it
// back as corrective context.
func (s *Session) ExecuteScript(ctx context.Context, code string) (bool, string, error) {
	execCtx, cancel := s.combined(ctx, 30*time.Second)
	defer cancel()

	var result string
	if err := chromedp.Run(execCtx,
		chromedp.Evaluate(wrapScript(code), &result),
	); err != nil {
		return false, "", fmt.Errorf("script evaluation failed: %w", err)
	}

	if strings.HasPrefix(result, "Error:") {
		return false, result, nil
	}
	return true, result, nil
}

// captureScreenshot saves a numbered PNG under the screenshot directory and
// returns its path plus the base64 payload for the oracle.
func (s *Session) captureScreenshot(ctx context.Context) (string, string, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(c)
		return err
	})); err != nil {
		return "", "", err
	}

	path := filepath.Join(s.cfg.ScreenshotDir, fmt.Sprintf("screenshot_%04d.png", s.screenshotCount))
	s.screenshotCount++
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	s.logger.Debug("Screenshot saved.", zap.String("path", path))
	return path, base64.StdEncoding.EncodeToString(buf), nil
}

// Close releases the tab. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// combined derives a context that respects both the session lifetime and the
// incoming request context, with a timeout.
func (s *Session) combined(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel1 := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel1)
	return runCtx, func() {
		stop()
		cancel1()
	}
}
