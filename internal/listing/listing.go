package listing

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

// Errors returned while reading a listing.
var (
	ErrMalformedLine   = errors.New("malformed stock definition")
	ErrDuplicateSymbol = errors.New("duplicate stock symbol")
)

var (
	valuePattern   = regexp.MustCompile(`[A-Za-z0-9%.-]+`)
	decimalPattern = regexp.MustCompile(`[0-9%.-]+`)
)

var hundred = decimal.NewFromInt(100)

//go:embed gbce-listing.txt
var gbceListing string

// Default returns the Global Beverage Corporation Exchange listing.
func Default() []model.Stock {
	stocks, err := Parse(strings.NewReader(gbceListing))
	if err != nil {
		panic(fmt.Sprintf("embedded listing: %v", err))
	}
	return stocks
}

// Load reads a listing file.
func Load(path string) ([]model.Stock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	stocks, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stocks, nil
}

// Parse reads a listing, skipping the header line and blank lines. Stocks
// are returned in file order.
func Parse(r io.Reader) ([]model.Stock, error) {
	var (
		stocks []model.Stock
		seen   = make(map[string]int)
		lineNo int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 || strings.TrimSpace(line) == "" {
			continue
		}

		stock, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if first, ok := seen[stock.Symbol]; ok {
			return nil, fmt.Errorf("line %d: %w: %s (first on line %d)", lineNo, ErrDuplicateSymbol, stock.Symbol, first)
		}
		seen[stock.Symbol] = lineNo
		stocks = append(stocks, stock)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}

	return stocks, nil
}

// ParseLine parses one stock definition.
func ParseLine(line string) (model.Stock, error) {
	fields := valuePattern.FindAllString(line, -1)
	if len(fields) < 5 {
		return model.Stock{}, fmt.Errorf("%w: want 5 fields (Symbol,Type,LastDividend,FixedDividend,ParValue), got %d in %q",
			ErrMalformedLine, len(fields), line)
	}

	stock := model.Stock{
		Symbol:        fields[0],
		LastDividend:  money.Parse(fields[2]),
		FixedDividend: ParseDecimal(fields[3], decimal.Zero),
		ParValue:      money.Parse(fields[4]),
	}

	switch fields[1] {
	case "Common":
		stock.Type = model.Common
		stock.FixedDividend = decimal.Zero
	case "Preferred":
		stock.Type = model.Preferred
	default:
		return model.Stock{}, fmt.Errorf("%w: unknown stock type %q", ErrMalformedLine, fields[1])
	}

	return stock, nil
}

// ParseDecimal reads the first number in s. A trailing '%' divides by 100
// and a lone "-" means zero. Anything unparseable yields def.
func ParseDecimal(s string, def decimal.Decimal) decimal.Decimal {
	token := decimalPattern.FindString(s)
	switch {
	case token == "":
		return def
	case token == "-":
		return decimal.Zero
	}

	percent := strings.HasSuffix(token, "%")
	d, err := decimal.NewFromString(strings.TrimSuffix(token, "%"))
	if err != nil {
		return def
	}
	if percent {
		return d.Div(hundred)
	}
	return d
}
