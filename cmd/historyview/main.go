// Command historyview is a read-only inspector for the two persisted stores.
// It prints the upload history table and the total counter without ever
// writing to the data directory.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"vrc-uploader/domain"
	"vrc-uploader/internal"
	"vrc-uploader/repositories"
)

type config struct {
	DataDir string `envconfig:"DATA_DIR"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		var err error
		if dataDir, err = internal.DefaultDataDir(); err != nil {
			log.Fatalf("Resolving data dir: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	history := repositories.NewHistoryRepository(dataDir, logger)
	counter := repositories.NewCounterRepository(dataDir, logger)
	history.Load()
	counter.Load()

	entries := history.All()
	ids := lo.Keys(entries)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Avatar ID", "Uploads", "First", "Last"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, id := range ids {
		stamps := entries[id]
		table.Append([]string{
			string(id),
			fmt.Sprintf("%d", len(stamps)),
			stamps[0].Format(time.RFC3339),
			stamps[len(stamps)-1].Format(time.RFC3339),
		})
	}
	table.Render()

	total := lo.SumBy(ids, func(id domain.AvatarID) int { return len(entries[id]) })
	fmt.Println(strings.Repeat("-", 40))
	color.New(color.FgGreen).Printf("Avatars: %d   Recorded uploads: %d   Counter: %d\n",
		len(ids), total, counter.Count())
}
