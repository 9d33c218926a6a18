package status

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// View is everything the status screen shows about one pool.
type View struct {
	Status    domain.RotationStatus
	Usage     domain.UsageStats
	Accounts  []domain.Account
	UpdatedAt time.Time
}

type RenderOptions struct {
	Now time.Time
}

const barWidth = 24

func renderView(view View, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Token Pool Status"),
		s.header.Render(fmt.Sprintf("accounts: %d", view.Status.TotalAccounts)),
	}

	if len(view.Accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, stateLine(view.Status, s))
	if updated := formatUpdated(view.UpdatedAt, opts.Now); updated != "" {
		lines = append(lines, s.header.Render(updated))
	}

	totalRequests := uint64(0)
	for _, usage := range view.Usage {
		totalRequests += usage.Requests
	}

	for _, account := range view.Accounts {
		lines = append(lines, s.section.Render(renderAccount(account, view, totalRequests, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stateLine(status domain.RotationStatus, s styles) string {
	style := s.detail
	switch status.State {
	case domain.PoolStateDegraded:
		style = s.warning
	case domain.PoolStateExhausted:
		style = s.critical
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.detail.Render("state: "),
		style.Render(string(status.State)),
		s.detail.Render(fmt.Sprintf("  current: %s (%d/%d)", status.CurrentAccount, status.CurrentIndex+1, status.TotalAccounts)),
	)
}

func renderAccount(account domain.Account, view View, totalRequests uint64, s styles) string {
	usage := view.Usage[account.Label]

	title := s.account.Render(accountTitle(account))
	if account.Label == view.Status.CurrentAccount {
		title = s.current.Render("> " + accountTitle(account))
	}
	if slices.Contains(view.Status.RateLimitedAccounts, account.Label) {
		title += " " + s.critical.Render("[rate limited]")
	}

	share := sharePercent(usage.Requests, totalRequests)
	hitColor := interpolateColor(hitRatio(usage), 0, 1)
	hits := lipgloss.NewStyle().Foreground(hitColor).Render(fmt.Sprintf("rate limit hits: %d", usage.RateLimitHits))

	usageLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.detail.Render("requests:"),
		" ",
		renderProgressBar(share, barWidth, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d (%2.0f%%)", usage.Requests, share)),
		"  ",
		hits,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, usageLine)
}

func accountTitle(account domain.Account) string {
	return fmt.Sprintf("%s  %s", strings.TrimSpace(account.Label), account.MaskedToken())
}

func sharePercent(requests, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return clampPercent(float64(requests) / float64(total) * 100)
}

// hitRatio is the fraction of requests that ended in a 429.
func hitRatio(usage domain.AccountUsage) float64 {
	if usage.Requests == 0 {
		if usage.RateLimitHits > 0 {
			return 1
		}
		return 0
	}

	return math.Min(1, float64(usage.RateLimitHits)/float64(usage.Requests))
}

func renderProgressBar(filledPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(filledPercent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatUpdated(updatedAt, now time.Time) string {
	if updatedAt.IsZero() {
		return ""
	}
	if now.IsZero() || updatedAt.After(now) {
		return "updated " + updatedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(updatedAt)
	switch {
	case elapsed < time.Minute:
		return "updated just now"
	case elapsed < time.Hour:
		return "updated " + plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return "updated " + plural(int(elapsed.Hours()), "hour") + " ago"
	default:
		return "updated " + plural(int(elapsed.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// interpolateColor maps value onto the 256-color ramp from light grey (250)
// at min to red (196) at max.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("250")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	ramp := []string{"250", "223", "216", "209", "203", "196"}
	index := int(math.Round(normalized * float64(len(ramp)-1)))

	return lipgloss.Color(ramp[index])
}
