package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
	"go.uber.org/zap"
)

// Format is the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Options configures which ledger records are exported and where.
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	Mint      string
	Wallet    string
	OutputDir string
}

// Exporter writes purchase ledger records to CSV or JSON files.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export"), now: time.Now}
}

var csvHeaders = []string{"timestamp", "token_mint", "wallet_address", "spent_sol", "unit_price", "tokens"}

// Export filters records, writes them to a new file in OutputDir and
// returns its path.
func (e *Exporter) Export(records []ledger.PurchaseRecord, opts Options) (string, error) {
	filtered := Filter(records, opts)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no purchases match the export criteria")
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, e.filename(opts))

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	switch opts.Format {
	case FormatCSV:
		err = writeCSV(file, filtered)
	case FormatJSON:
		err = e.writeJSON(file, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Purchases exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return outputPath, nil
}

// Filter keeps the records inside the time window that match mint and wallet.
func Filter(records []ledger.PurchaseRecord, opts Options) []ledger.PurchaseRecord {
	var out []ledger.PurchaseRecord
	for _, r := range records {
		if !opts.StartTime.IsZero() && r.Timestamp.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && r.Timestamp.After(opts.EndTime) {
			continue
		}
		if opts.Mint != "" && r.TokenMint != opts.Mint {
			continue
		}
		if opts.Wallet != "" && r.WalletAddress != opts.Wallet {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (e *Exporter) filename(opts Options) string {
	prefix := "purchases_all"
	if opts.Mint != "" {
		mint := opts.Mint
		if len(mint) > 8 {
			mint = mint[:8]
		}
		prefix = "purchases_" + mint
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), opts.Format)
}

func tokens(r ledger.PurchaseRecord) float64 {
	if r.UnitPrice <= 0 {
		return 0
	}
	return r.SpentAmount / r.UnitPrice
}

func writeCSV(w io.Writer, records []ledger.PurchaseRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.TokenMint,
			r.WalletAddress,
			strconv.FormatFloat(r.SpentAmount, 'f', -1, 64),
			strconv.FormatFloat(r.UnitPrice, 'g', -1, 64),
			strconv.FormatFloat(tokens(r), 'f', 6, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write purchase: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (e *Exporter) writeJSON(w io.Writer, records []ledger.PurchaseRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	data := struct {
		ExportTime    time.Time               `json:"export_time"`
		PurchaseCount int                     `json:"purchase_count"`
		Summary       Summary                 `json:"summary"`
		Daily         []DailyStats            `json:"daily"`
		Purchases     []ledger.PurchaseRecord `json:"purchases"`
	}{
		ExportTime:    e.now().UTC(),
		PurchaseCount: len(records),
		Summary:       Summarize(records),
		Daily:         DailyBreakdown(records),
		Purchases:     records,
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates a set of purchases.
type Summary struct {
	Purchases     int       `json:"purchases"`
	UniqueTokens  int       `json:"unique_tokens"`
	UniqueWallets int       `json:"unique_wallets"`
	TotalSpent    float64   `json:"total_spent"`
	TotalTokens   float64   `json:"total_tokens"`
	AvgUnitPrice  float64   `json:"avg_unit_price"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

// Summarize expects records sorted by time.
func Summarize(records []ledger.PurchaseRecord) Summary {
	s := Summary{Purchases: len(records)}
	if len(records) == 0 {
		return s
	}
	s.StartDate = records[0].Timestamp
	s.EndDate = records[len(records)-1].Timestamp

	mints := make(map[string]struct{})
	wallets := make(map[string]struct{})
	for _, r := range records {
		mints[r.TokenMint] = struct{}{}
		wallets[r.WalletAddress] = struct{}{}
		s.TotalSpent += r.SpentAmount
		s.TotalTokens += tokens(r)
	}
	s.UniqueTokens = len(mints)
	s.UniqueWallets = len(wallets)
	if s.TotalTokens > 0 {
		s.AvgUnitPrice = s.TotalSpent / s.TotalTokens
	}
	return s
}

// DailyStats – покупки за один календарный день (UTC).
type DailyStats struct {
	Date      string  `json:"date"`
	Purchases int     `json:"purchases"`
	Spent     float64 `json:"spent"`
	Tokens    float64 `json:"tokens"`
}

func DailyBreakdown(records []ledger.PurchaseRecord) []DailyStats {
	byDay := make(map[string]*DailyStats)
	for _, r := range records {
		day := r.Timestamp.UTC().Format("2006-01-02")
		stats, ok := byDay[day]
		if !ok {
			stats = &DailyStats{Date: day}
			byDay[day] = stats
		}
		stats.Purchases++
		stats.Spent += r.SpentAmount
		stats.Tokens += tokens(r)
	}

	out := make([]DailyStats, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
