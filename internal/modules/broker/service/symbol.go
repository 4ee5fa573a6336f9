package service

import "strings"

// NormalizeSymbol приводит тикер к формату брокера: суффикс рынка
// обязателен. Числовые коды — A-шары/Гонконг, остальное по умолчанию US.
func NormalizeSymbol(symbol string) string {
	if symbol == "" {
		return symbol
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, suffix := range []string{".US", ".HK", ".SH", ".SZ", ".SG"} {
		if strings.HasSuffix(symbol, suffix) {
			return symbol
		}
	}

	// мусорные суффиксы вроде .NASDAQ отрезаем
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		symbol = symbol[:i]
	}

	if len(symbol) == 6 && isDigits(symbol) {
		switch symbol[0] {
		case '6':
			return symbol + ".SH"
		case '0', '3':
			return symbol + ".SZ"
		}
		return symbol + ".HK"
	}

	// чистые цифры — гонконгский код, добиваем нулями до 5 знаков
	if isDigits(symbol) {
		for len(symbol) < 5 {
			symbol = "0" + symbol
		}
		return symbol + ".HK"
	}

	return symbol + ".US"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
