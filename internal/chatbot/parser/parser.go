package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// MaxQty caps the quantity of a single chat line.
const MaxQty = 99

// ParsedMessage is the result of parsing a chat order message.
type ParsedMessage struct {
	Items    []ParsedItem
	Warnings []string // Lines that failed to parse
}

// ParsedItem is a single item parsed from a chat message line.
type ParsedItem struct {
	RawText     string
	Description string
	Qty         int32
}

// ErrNoItems is returned when no line of the message could be parsed.
var ErrNoItems = errors.New("no items found in message")

// Serving units accepted after a number ("2porsi", "3 gelas").
var qtyUnits = map[string]bool{
	"porsi": true, "pcs": true, "bks": true, "bungkus": true,
	"gelas": true, "cup": true, "btl": true, "botol": true,
	"box": true, "piring": true, "mangkok": true, "buah": true,
}

// ParseMessage parses every non-empty line as an item line
// ("2 nasi goreng", "es teh x3", "ayam bakar 2 porsi").
func ParseMessage(text string) (*ParsedMessage, error) {
	var items []ParsedItem
	var warnings []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		item, err := parseItemLine(line)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped: %s", line))
			continue
		}
		items = append(items, *item)
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return &ParsedMessage{Items: items, Warnings: warnings}, nil
}

// parseItemLine takes the first quantity token of the line; every other
// token is description.
func parseItemLine(line string) (*ParsedItem, error) {
	tokens := strings.Fields(strings.ToLower(line))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty line")
	}

	var qty int32 = 1
	var qtyFound bool
	var descTokens []string

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !qtyFound {
			if q, ok := parseQtyToken(tok); ok {
				qty = q
				qtyFound = true
				// "2 porsi": the unit is a separate token
				if i+1 < len(tokens) && qtyUnits[tokens[i+1]] {
					i++
				}
				continue
			}
		}
		descTokens = append(descTokens, tok)
	}

	if len(descTokens) == 0 {
		return nil, fmt.Errorf("no description in line: %q", line)
	}
	if qty < 1 || qty > MaxQty {
		return nil, fmt.Errorf("quantity out of range in line: %q", line)
	}

	return &ParsedItem{
		RawText:     line,
		Description: strings.Join(descTokens, " "),
		Qty:         qty,
	}, nil
}

// parseQtyToken parses "2", "x2", "2x", "2pcs" and "2porsi".
func parseQtyToken(tok string) (int32, bool) {
	tok = strings.TrimPrefix(tok, "x")
	if tok == "" {
		return 0, false
	}

	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 {
		return 0, false
	}

	suffix := tok[digitEnd:]
	if suffix != "" && suffix != "x" && !qtyUnits[suffix] {
		return 0, false
	}

	n, err := strconv.ParseInt(tok[:digitEnd], 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}
