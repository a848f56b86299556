package cmd

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/olekukonko/tablewriter"
	"github.com/webitel/im-social-service/internal/domain/model"
)

const monitorMaxTopics = 20

func fetchHubStats(ctx context.Context, client *http.Client, addr string) (*model.HubStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/debug/hub", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hub stats: unexpected status %d", resp.StatusCode)
	}

	var stats model.HubStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("hub stats: %w", err)
	}
	return &stats, nil
}

var topicHeader = []string{"Topic", "Subscribers", "Mailbox"}

func summaryText(stats *model.HubStats) string {
	text := fmt.Sprintf(
		"Topics:      %d\nUsers:       %d\nConnections: %d\nDropped:     %d\nUptime:      %s",
		stats.TotalTopics, stats.TotalUsers, stats.TotalConnections, stats.DroppedEvents,
		stats.Uptime.Truncate(time.Second),
	)
	if p := stats.Process; p != nil {
		text += fmt.Sprintf("\nProcess:     pid %d, cpu %.1f%%, rss %d MiB, %d goroutines",
			p.PID, p.CPUPercent, p.RSSBytes>>20, p.Goroutines)
	}
	return text
}

// topicRows returns the busiest topics first.
func topicRows(stats *model.HubStats) [][]string {
	slices.SortStableFunc(stats.Topics, func(a, b model.TopicStats) int {
		return cmp.Compare(b.Subscribers, a.Subscribers)
	})

	rows := make([][]string, 0, min(len(stats.Topics), monitorMaxTopics))
	for i, t := range stats.Topics {
		if i == monitorMaxTopics {
			break
		}
		rows = append(rows, []string{string(t.Topic), strconv.Itoa(t.Subscribers), strconv.Itoa(t.Mailbox)})
	}
	return rows
}

// printHubStats writes a single snapshot for scripts and non-interactive terminals.
func printHubStats(w io.Writer, stats *model.HubStats) {
	fmt.Fprintln(w, summaryText(stats))
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader(topicHeader)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.AppendBulk(topicRows(stats))
	table.Render()
}

// runMonitor renders a polling dashboard until q or Ctrl-C is pressed.
func runMonitor(ctx context.Context, addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer ui.Close()

	client := &http.Client{Timeout: interval}

	summary := widgets.NewParagraph()
	summary.Title = " " + ServiceName + " @ " + addr + " "
	summary.SetRect(0, 0, 80, 8)

	topics := widgets.NewTable()
	topics.Title = " Busiest topics "
	topics.TextStyle = ui.NewStyle(ui.ColorWhite)
	topics.RowSeparator = false
	topics.SetRect(0, 8, 80, 8+monitorMaxTopics+3)

	refresh := func() {
		stats, err := fetchHubStats(ctx, client, addr)
		if err != nil {
			summary.Text = "[error](fg:red) " + err.Error()
			ui.Render(summary)
			return
		}

		summary.Text = summaryText(stats)
		topics.Rows = append([][]string{topicHeader}, topicRows(stats)...)

		ui.Render(summary, topics)
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			refresh()
		}
	}
}
