package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// PortalSession owns the single authenticated browser session against the
// ServiceDesk portal. All navigation goes through it; the scraper borrows the
// chromedp context via run() and never holds it across a teardown.
type PortalSession struct {
	cfg    Config
	parent context.Context

	allocCancel context.CancelFunc
	cancel      context.CancelFunc
	ctx         context.Context
	loggedIn    bool
}

const (
	listTableSelector = "#GridDatatable"
	navTimeout        = 90 * time.Second
	stepTimeout       = 45 * time.Second
)

func NewPortalSession(parent context.Context, cfg Config) *PortalSession {
	return &PortalSession{cfg: cfg, parent: parent}
}

// Init launches the browser context. No-op if one is already running.
func (s *PortalSession) Init() {
	if s.ctx != nil {
		return
	}
	log.Println("Initializing browser...")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(s.cfg.ChromePath),
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1280, 800),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(s.parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s.allocCancel = allocCancel
	s.cancel = cancel
	s.ctx = ctx
	s.loggedIn = false
}

// Close tears the browser down and resets the session to uninitialized.
// Safe to call at any time.
func (s *PortalSession) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.ctx = nil
	s.cancel = nil
	s.allocCancel = nil
	s.loggedIn = false
}

func (s *PortalSession) Active() bool {
	return s.ctx != nil && s.loggedIn
}

// run executes chromedp actions with a bounded timeout on the session
// context.
func (s *PortalSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	if s.ctx == nil {
		return fmt.Errorf("session not initialized")
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *PortalSession) portalHost() string {
	u, err := url.Parse(s.cfg.PortalURL)
	if err != nil {
		return s.cfg.PortalURL
	}
	return u.Host
}

// Login navigates to the portal entry URL and, if bounced to the identity
// provider, submits the stored credentials and waits for the redirect back.
// Returns an error instead of panicking; the caller backs off and retries.
func (s *PortalSession) Login() error {
	log.Println("Navigating to ServiceDesk...")

	var current string
	err := s.run(navTimeout,
		chromedp.Navigate(s.cfg.PortalURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Location(&current),
	)
	if err != nil {
		return fmt.Errorf("opening portal: %w", err)
	}

	onAuth := s.cfg.AuthDomain != "" && strings.Contains(current, s.cfg.AuthDomain)
	if !onAuth && !strings.Contains(current, s.portalHost()) {
		// Redirected somewhere that is not the portal: treat as a login form.
		onAuth = true
	}

	if onAuth {
		log.Println("On login page, entering credentials...")

		// The identity provider renders two labeled inputs and a button that
		// is type="button", not a submit.
		clickJS := `(function() {
			var b = document.querySelector('button[name="button_entrar"]') ||
			        document.querySelector('button[aria-label="Entrar"]');
			if (b) { b.click(); return true; }
			return false;
		})()`

		var clicked bool
		err = s.run(stepTimeout,
			chromedp.WaitVisible("#input_0", chromedp.ByQuery),
			chromedp.SendKeys("#input_0", s.cfg.PortalEmail, chromedp.ByQuery),
			chromedp.SendKeys("#input_1", s.cfg.PortalPass, chromedp.ByQuery),
			chromedp.Sleep(500*time.Millisecond),
			chromedp.Evaluate(clickJS, &clicked),
			chromedp.Sleep(3*time.Second),
			chromedp.Location(&current),
		)
		if err != nil {
			return fmt.Errorf("submitting credentials: %w", err)
		}
		if !clicked {
			return fmt.Errorf("login submit button not found")
		}
		log.Printf("Login submitted, current URL: %s", current)
	}

	if !strings.Contains(current, s.portalHost()) {
		return fmt.Errorf("still off-portal after login (at %s)", current)
	}

	s.loggedIn = true
	log.Println("Successfully logged in")
	return nil
}

// ApplyFilters puts the list view into monitoring shape: page size "show
// all", status search filter, sort by opening time descending. Best-effort;
// a missing control is logged, not fatal.
func (s *PortalSession) ApplyFilters() error {
	js := `(function(filterText) {
		var out = { pagination: 'skip', filter: 'skip', sort: 'skip' };

		var selects = document.querySelectorAll('select');
		var pageSelect = null;
		for (var i = 0; i < selects.length; i++) {
			var opts = Array.prototype.slice.call(selects[i].options);
			if (opts.some(function(o) { return o.text === 'Não' || o.value === '-1'; })) {
				pageSelect = selects[i];
				break;
			}
		}
		if (!pageSelect) {
			out.pagination = 'not_found';
		} else if (pageSelect.value !== '-1') {
			pageSelect.value = '-1';
			pageSelect.dispatchEvent(new Event('change', { bubbles: true }));
			out.pagination = 'set';
		}

		var input = document.querySelector('.dataTables_filter input') ||
		            document.querySelector('input[type="search"]');
		if (!input) {
			out.filter = 'not_found';
		} else if (input.value !== filterText) {
			input.value = filterText;
			input.dispatchEvent(new Event('input', { bubbles: true }));
			input.dispatchEvent(new Event('keyup', { bubbles: true }));
			out.filter = 'set';
		}

		var headers = document.querySelectorAll('th');
		var found = false;
		for (var j = 0; j < headers.length; j++) {
			if (headers[j].innerText.indexOf('Abertura') !== -1) {
				found = true;
				if (!headers[j].classList.contains('sorting_desc')) {
					headers[j].click();
					out.sort = 'clicked';
				}
				break;
			}
		}
		if (!found) out.sort = 'not_found';

		return out.pagination + '/' + out.filter + '/' + out.sort;
	})(` + fmt.Sprintf("%q", s.cfg.StatusFilter) + `)`

	var result string
	err := s.run(stepTimeout,
		chromedp.WaitVisible(listTableSelector, chromedp.ByQuery),
		chromedp.Evaluate(js, &result),
		chromedp.Sleep(1500*time.Millisecond),
	)
	if err != nil {
		log.Printf("Filter setup error: %v", err)
		return err
	}
	if result != "skip/skip/skip" {
		log.Printf("Filters applied (pagination/filter/sort): %s", result)
	}
	return nil
}

// SoftRefresh re-navigates to the list URL and re-applies filters. Cheaper
// than a full reload and it surfaces session expiry: if the table never
// appears we are logged out or broken, and the caller should tear down.
func (s *PortalSession) SoftRefresh() error {
	err := s.run(navTimeout, chromedp.Navigate(s.cfg.PortalURL))
	if err != nil {
		log.Printf("Soft refresh navigation timed out, checking table anyway: %v", err)
	}
	if err := s.run(25*time.Second, chromedp.WaitVisible(listTableSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("list table missing after refresh: %w", err)
	}
	// Filter setup is best-effort; a failure here is logged, not an excuse
	// to tear the session down.
	_ = s.ApplyFilters()
	return nil
}
