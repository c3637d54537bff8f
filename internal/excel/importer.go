// Package excel imports seed items from spreadsheets.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/metrics"
	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	KoreanColumn  string // Column with the Korean text
	EnglishColumn string // Column with the meaning
	TypeColumn    string // Column with vocab or grammar
	LevelColumn   string // Column with the TOPIK level
	TagsColumn    string // Column with comma separated tags
	NotesColumn   string // Column with notes or examples
	SheetName     string // Sheet to import; empty means the first sheet
	StartRow      int    // The row to start importing from (1-based index)
	Source        models.Source
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		KoreanColumn:  "A",
		EnglishColumn: "B",
		TypeColumn:    "C",
		LevelColumn:   "D",
		TagsColumn:    "E",
		NotesColumn:   "F",
		StartRow:      2, // skip header
		Source:        models.SourceSeed,
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer loads items into the store
type Importer struct {
	store   store.Store
	config  ImportConfig
	logger  *zap.Logger
	metrics *metrics.Manager
}

// NewImporter creates an Importer. logger and m may be nil.
func NewImporter(st store.Store, config ImportConfig, logger *zap.Logger, m *metrics.Manager) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.StartRow < 1 {
		config.StartRow = 1
	}
	if config.Source == "" {
		config.Source = models.SourceSeed
	}
	return &Importer{store: st, config: config, logger: logger, metrics: m}
}

// ImportFile imports items from an .xlsx or .csv file
func (im *Importer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		rows, err = readCSV(path)
	} else {
		rows, err = im.readExcel(path)
	}
	if err != nil {
		return nil, err
	}

	result, err := im.importRows(ctx, rows)
	if err != nil {
		return nil, err
	}
	im.metrics.ItemsImported(result.Created)
	im.logger.Info("items imported",
		zap.String("file", path),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (im *Importer) readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheet := im.config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rows of sheet %q", sheet)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read CSV")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (im *Importer) importRows(ctx context.Context, rows [][]string) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < im.config.StartRow-1 || blankRow(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.TotalProcessed++

		item, err := im.parseRow(row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		_, err = im.store.FindItemByKorean(ctx, item.Korean, item.ItemType)
		switch {
		case err == nil:
			result.Skipped++
			continue
		case !errors.Is(err, store.ErrNotFound):
			return nil, errors.Wrapf(err, "row %d", i+1)
		}

		if err := im.store.CreateItem(ctx, item); err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		result.Created++
	}
	return result, nil
}

func (im *Importer) parseRow(row []string) (*models.Item, error) {
	cfg := im.config
	item := &models.Item{
		Korean:     cleanText(cell(row, cfg.KoreanColumn)),
		English:    strings.TrimSpace(cell(row, cfg.EnglishColumn)),
		ItemType:   models.ItemTypeVocab,
		TopikLevel: 1,
		Source:     cfg.Source,
		Tags:       parseTags(cell(row, cfg.TagsColumn)),
		Notes:      strings.TrimSpace(cell(row, cfg.NotesColumn)),
	}
	if item.Korean == "" {
		return nil, errors.New("korean cannot be empty")
	}
	if item.English == "" {
		return nil, errors.New("english cannot be empty")
	}

	if raw := strings.ToLower(strings.TrimSpace(cell(row, cfg.TypeColumn))); raw != "" {
		item.ItemType = models.ItemType(raw)
		if !item.ItemType.Valid() {
			return nil, errors.Errorf("unknown item type %q", raw)
		}
	}
	if raw := strings.TrimSpace(cell(row, cfg.LevelColumn)); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 1 || level > 6 {
			return nil, errors.Errorf("invalid TOPIK level %q", raw)
		}
		item.TopikLevel = level
	}
	return item, nil
}

// cleanText drops trailing parenthesised hints such as "먹다 (to eat)"
func cleanText(s string) string {
	if i := strings.Index(s, "("); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func parseTags(s string) models.Tags {
	tags := models.Tags{}
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx := columnToIndex(column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
