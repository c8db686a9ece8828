package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ScrapeList captures the list page and returns the currently visible ticket
// summaries in table order.
func (s *PortalSession) ScrapeList() ([]Ticket, error) {
	var current string
	if err := s.run(stepTimeout, chromedp.Location(&current)); err != nil {
		return nil, fmt.Errorf("reading location: %w", err)
	}
	if !strings.Contains(current, s.portalHost()) {
		log.Println("Navigating to list page before scraping...")
		if err := s.run(navTimeout, chromedp.Navigate(s.cfg.PortalURL), chromedp.Sleep(2*time.Second)); err != nil {
			return nil, fmt.Errorf("navigating to list: %w", err)
		}
	}

	var html string
	err := s.run(stepTimeout,
		chromedp.WaitVisible(listTableSelector+" tbody tr", chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing list page: %w", err)
	}

	tickets, err := ParseTicketList(html)
	if err != nil {
		return nil, err
	}
	log.Printf("Extracted %d tickets from list view", len(tickets))
	return tickets, nil
}

// ScrapeDetail navigates to the ticket's detail page, extracts the labeled
// fields, and navigates back to the list. The way back runs even when
// extraction fails so the session stays list-ready.
func (s *PortalSession) ScrapeDetail(number string) (details map[string]string, err error) {
	detailURL := strings.TrimRight(s.cfg.PortalURL, "/") + "/" + number
	log.Printf("Navigating to ticket details: %s", detailURL)

	defer func() {
		if backErr := s.backToList(); backErr != nil {
			log.Printf("Error returning to list after ticket #%s: %v", number, backErr)
			if err == nil {
				err = backErr
			}
		}
	}()

	var html string
	err = s.run(navTimeout,
		chromedp.Navigate(detailURL),
		chromedp.Sleep(5*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing detail page for #%s: %w", number, err)
	}

	details = ParseDetailFields(html)
	log.Printf("Extracted %d fields from ticket #%s", len(details), number)
	return details, nil
}

func (s *PortalSession) backToList() error {
	if err := s.run(navTimeout, chromedp.Navigate(s.cfg.PortalURL)); err != nil {
		return err
	}
	if err := s.run(15*time.Second, chromedp.WaitVisible(listTableSelector, chromedp.ByQuery)); err != nil {
		log.Println("Table not found after nav back, reloading...")
		return s.run(navTimeout,
			chromedp.Reload(),
			chromedp.WaitVisible(listTableSelector, chromedp.ByQuery),
		)
	}
	return nil
}
