package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Element is a clickable node on a page.
type Element interface {
	Attribute(name string) (string, error)
	Click() error
}

// Page wraps a playwright page with the handful of operations the scraper uses.
// Selectors starting with "//" are treated as XPath by playwright.
type Page struct {
	page   playwright.Page
	logger *slog.Logger
}

func (p *Page) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *Page) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (p *Page) QueryAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}

	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &element{handle: h})
	}
	return elements, nil
}

func (p *Page) Content() (string, error) {
	return p.page.Content()
}

func (p *Page) URL() string {
	return p.page.URL()
}

// ScrollToBottom scrolls the first element matching a CSS selector so lazily
// loaded results get rendered.
func (p *Page) ScrollToBottom(cssSelector string) error {
	_, err := p.page.Evaluate(`sel => {
		const el = document.querySelector(sel);
		if (el) { el.scrollTop = el.scrollHeight; }
	}`, cssSelector)
	if err != nil {
		return fmt.Errorf("scroll %s: %w", cssSelector, err)
	}
	return nil
}

func (p *Page) Close() error {
	if err := p.page.Close(); err != nil {
		p.logger.Warn("failed to close page", "error", err)
		return err
	}
	return nil
}

type element struct {
	handle playwright.ElementHandle
}

func (e *element) Attribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *element) Click() error {
	return e.handle.Click()
}
