// Package browser implements the scraper's page abstraction on top of
// headless Chrome via chromedp. One shared browser process hands out tab
// contexts; concurrency is bounded by a semaphore and navigation is rate
// limited per host.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clipstream/harvester/internal/scraper"
)

// Config controls the shared Chrome process and its tab budget.
type Config struct {
	Headless   bool
	UserAgent  string
	MaxTabs    int
	NavTimeout time.Duration
	OpTimeout  time.Duration
	HostQPS    float64
}

// Manager owns the Chrome allocator and browser contexts and implements
// scraper.Browser. Closing the manager cancels every open tab, which is how
// a running mission gets torn down.
type Manager struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	navTimeout      time.Duration
	opTimeout       time.Duration
	userAgent       string
	hostQPS         float64
	hostLimiters    sync.Map
}

// NewManager launches headless Chrome and verifies it responds. A launch
// failure is reported as scraper.ErrBrowserInit.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = 4
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("%w: chromedp warmup: %v", scraper.ErrBrowserInit, err)
	}
	logger.Info("browser manager ready",
		zap.Bool("headless", cfg.Headless),
		zap.Int("max_tabs", cfg.MaxTabs),
	)

	return &Manager{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, cfg.MaxTabs),
		navTimeout:      cfg.NavTimeout,
		opTimeout:       cfg.OpTimeout,
		userAgent:       cfg.UserAgent,
		hostQPS:         cfg.HostQPS,
	}, nil
}

// NewPage opens a tab, blocking while the tab budget is exhausted.
func (m *Manager) NewPage(ctx context.Context) (scraper.Page, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire tab slot: %w", ctx.Err())
	}
	tabCtx, cancelTab := chromedp.NewContext(m.browserCtx)
	return &tab{
		mgr:     m,
		ctx:     tabCtx,
		cancel:  cancelTab,
		release: func() { <-m.sem },
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.browserCancel()
	m.allocatorCancel()
	select {
	case <-ctx.Done():
	default:
	}
	return nil
}

func (m *Manager) waitHostBudget(ctx context.Context, rawURL string) error {
	if m.hostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse navigation url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := m.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(m.hostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

type tab struct {
	mgr       *Manager
	ctx       context.Context
	cancel    context.CancelFunc
	release   func()
	closeOnce sync.Once
}

func (t *tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancelTask := context.WithTimeout(t.ctx, timeout)
	defer cancelTask()
	stop := forwardCancel(ctx, cancelTask)
	defer stop()
	return chromedp.Run(taskCtx, actions...)
}

// Navigate loads the URL and waits for the document body to be ready.
func (t *tab) Navigate(ctx context.Context, rawURL string) error {
	if err := t.mgr.waitHostBudget(ctx, rawURL); err != nil {
		return fmt.Errorf("navigation rate limit: %w", err)
	}
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(t.mgr.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := t.run(ctx, t.mgr.navTimeout, tasks); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

func (t *tab) WaitAttached(ctx context.Context, selector string, timeout time.Duration) error {
	if err := t.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (t *tab) ScrollBy(ctx context.Context, deltaY int) error {
	js := fmt.Sprintf(`window.scrollBy(0, %d)`, deltaY)
	if err := t.run(ctx, t.mgr.opTimeout, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("scroll by %d: %w", deltaY, err)
	}
	return nil
}

func (t *tab) Hrefs(ctx context.Context, selector string) ([]string, error) {
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q), a => a.href).filter(h => h.length > 0)`,
		selector,
	)
	var hrefs []string
	if err := t.run(ctx, t.mgr.opTimeout, chromedp.Evaluate(js, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect hrefs for %q: %w", selector, err)
	}
	return hrefs, nil
}

func (t *tab) Text(ctx context.Context, selector string) (string, error) {
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.textContent : ''; })()`,
		selector,
	)
	var text string
	if err := t.run(ctx, t.mgr.opTimeout, chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("read text of %q: %w", selector, err)
	}
	return text, nil
}

func (t *tab) ClickAll(ctx context.Context, selector string) (int, error) {
	js := fmt.Sprintf(
		`(() => {
			const els = Array.from(document.querySelectorAll(%q));
			for (const el of els) { el.click(); }
			return els.length;
		})()`,
		selector,
	)
	var clicked int
	if err := t.run(ctx, t.mgr.opTimeout, chromedp.Evaluate(js, &clicked)); err != nil {
		return 0, fmt.Errorf("click all %q: %w", selector, err)
	}
	return clicked, nil
}

// Comments walks every rendered comment container in one evaluation, so
// the DOM is read consistently even while the page keeps lazy-loading.
func (t *tab) Comments(ctx context.Context, layout scraper.CommentLayout) ([]scraper.DOMComment, error) {
	js := fmt.Sprintf(
		`(() => {
			const first = (root, sel) => root.querySelector(sel);
			const text = (root, sel) => {
				const el = first(root, sel);
				return el ? el.textContent.trim() : '';
			};
			const parse = (el, textSel) => ({
				dom_id: el.id || '',
				author: text(el, %q),
				text: text(el, textSel),
				likes: text(el, %q),
				is_creator: !!first(el, %q),
				replies: [],
			});
			const out = [];
			for (const wrapper of document.querySelectorAll(%q)) {
				const item = first(wrapper, %q) || wrapper;
				const top = parse(item, %q);
				const replyRoot = first(wrapper, %q);
				if (replyRoot) {
					for (const reply of replyRoot.querySelectorAll(%q)) {
						top.replies.push(parse(reply, %q));
					}
				}
				out.push(top);
			}
			return out;
		})()`,
		layout.CommentAuthor,
		layout.CommentLikes,
		layout.CreatorBadge,
		layout.CommentObjectWrapper,
		layout.CommentItemWrapper,
		layout.CommentText,
		layout.ReplyContainer,
		layout.CommentItemWrapper,
		layout.ReplyText,
	)
	var comments []scraper.DOMComment
	if err := t.run(ctx, t.mgr.opTimeout, chromedp.Evaluate(js, &comments)); err != nil {
		return nil, fmt.Errorf("collect comments (%s layout): %w", layout.Name, err)
	}
	return comments, nil
}

func (t *tab) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		t.release()
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
