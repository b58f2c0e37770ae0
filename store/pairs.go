package store

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"spreadscan/logger"
	"spreadscan/models"
)

// LoadTradingPairs reads the trading-pair list, one symbol per line. Blank
// lines and lines starting with '#' are skipped, symbols are uppercased and
// bare base symbols get the -USD quote suffix appended, so both "atom" and
// "ATOM-USD" resolve to "ATOM-USD".
func (s *Store) LoadTradingPairs() ([]string, error) {
	f, err := os.Open(s.files.PairsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open pairs file: %w", err)
	}
	defer f.Close()

	var pairs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pair := strings.ToUpper(line)
		if !strings.Contains(pair, "-") {
			pair += "-USD"
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs file: %w", err)
	}
	return pairs, nil
}

// WritePairsFile regenerates the trading-pair list from product metadata:
// the base currencies of all online, tradable USD-quoted products, sorted.
// The file is rewritten only when its content would change, preserving the
// modification time for an unchanged universe.
func (s *Store) WritePairsFile(products []models.Product) error {
	symbols := make([]string, 0, len(products))
	for _, p := range products {
		if p.QuoteCurrency != "USD" || p.TradingDisabled {
			continue
		}
		if p.Status != "" && p.Status != "online" {
			continue
		}
		symbols = append(symbols, p.BaseCurrency)
	}
	sort.Strings(symbols)

	content := strings.Join(symbols, "\n")
	if len(symbols) > 0 {
		content += "\n"
	}

	if existing, err := os.ReadFile(s.files.PairsFile); err == nil && string(existing) == content {
		return nil
	}

	if err := writeFileAtomic(s.files.PairsFile, []byte(content)); err != nil {
		return fmt.Errorf("failed to write pairs file: %w", err)
	}
	s.log.WithComponent("store").WithFields(logger.Fields{
		"pairs": len(symbols),
		"file":  s.files.PairsFile,
	}).Info("updated trading pairs file")
	return nil
}
