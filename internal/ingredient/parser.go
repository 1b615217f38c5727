// Package ingredient は材料文字列の構造化解析を提供する。
// 例:
//
//	"2 cups flour"              -> {Amount: 2, Unit: "cups", Item: "flour"}
//	"1/2 teaspoon salt"         -> {Amount: 0.5, Unit: "teaspoon", Item: "salt"}
//	"3-4 cloves garlic, minced" -> {Amount: 3, AmountMax: 4, Item: "cloves garlic", Preparation: "minced"}
//
// このパーサーは意図的にヒューリスティックであり、どんな入力に対しても
// エラーを返さない。解析できない部分は元のテキストのままItemに残る。
package ingredient

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hitoshi/simmer/internal/model"
)

// unitMap は単位の表記から正規化済み略称への変換テーブル。
// マッチングと正規化の両方でこのテーブルを唯一の語彙として使う。
var unitMap = map[string]string{
	// 容量 - 大さじ
	"tablespoon":  "tbsp",
	"tablespoons": "tbsp",
	"tbsp":        "tbsp",
	"tbs":         "tbsp",
	"tb":          "tbsp",

	// 容量 - 小さじ
	"teaspoon":  "tsp",
	"teaspoons": "tsp",
	"tsp":       "tsp",
	"ts":        "tsp",

	// 容量 - カップ
	"cup":  "cup",
	"cups": "cup",
	"c":    "cup",

	// 容量 - 液量オンス
	"fluid ounce":  "fl oz",
	"fluid ounces": "fl oz",
	"fl oz":        "fl oz",
	"floz":         "fl oz",

	// 容量 - パイント/クォート/ガロン
	"pint":    "pint",
	"pints":   "pint",
	"pt":      "pint",
	"quart":   "quart",
	"quarts":  "quart",
	"qt":      "quart",
	"gallon":  "gallon",
	"gallons": "gallon",
	"gal":     "gallon",

	// 重量 - オンス/ポンド
	"ounce":  "oz",
	"ounces": "oz",
	"oz":     "oz",
	"pound":  "lb",
	"pounds": "lb",
	"lb":     "lb",
	"lbs":    "lb",

	// メートル法 - 質量
	"gram":      "g",
	"grams":     "g",
	"g":         "g",
	"gr":        "g",
	"kilogram":  "kg",
	"kilograms": "kg",
	"kg":        "kg",

	// メートル法 - 容量
	"milliliter":  "ml",
	"milliliters": "ml",
	"ml":          "ml",
	"liter":       "L",
	"liters":      "L",
	"l":           "L",

	// その他の一般的な単位
	"pinch":    "pinch",
	"dash":     "dash",
	"handful":  "handful",
	"bunch":    "bunch",
	"sprig":    "sprig",
	"sprigs":   "sprig",
	"slice":    "slice",
	"slices":   "slice",
	"piece":    "piece",
	"pieces":   "piece",
	"can":      "can",
	"cans":     "can",
	"package":  "package",
	"packages": "package",
	"pkg":      "package",
	"stick":    "stick",
	"sticks":   "stick",
	"head":     "head",
	"heads":    "head",
	"stalk":    "stalk",
	"stalks":   "stalk",
}

// fractionMap はUnicodeの分数グリフから小数への変換テーブル。
var fractionMap = map[rune]float64{
	'½': 0.5,
	'⅓': 0.333,
	'⅔': 0.667,
	'¼': 0.25,
	'¾': 0.75,
	'⅛': 0.125,
	'⅜': 0.375,
	'⅝': 0.625,
	'⅞': 0.875,
	'⅕': 0.2,
	'⅖': 0.4,
	'⅗': 0.6,
	'⅘': 0.8,
	'⅙': 0.167,
	'⅚': 0.833,
}

const fractionGlyphs = "½⅓⅔¼¾⅛⅜⅝⅞⅕⅖⅗⅘⅙⅚"

// numberToken は数量1つ分の表記にマッチする。
// 優先順: 帯分数（"1 1/2"）、スラッシュ分数（"1/2"）、
// 整数+分数グリフ（"1½"）、分数グリフ単独（"½"）、小数/整数。
const numberToken = `(?:\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?\s?[` + fractionGlyphs + `]|[` + fractionGlyphs + `]|\d+(?:\.\d+)?)`

// amountPattern は先頭の数量（単独または範囲）にマッチする。
// 範囲はハイフン・エンダッシュ・エムダッシュまたは "to" で結合される。
var amountPattern = regexp.MustCompile(`^(` + numberToken + `)(?:\s*(?:[-–—]|to)\s*(` + numberToken + `))?`)

// unitPattern は残り文字列の先頭にある単位語彙にマッチする。
// 単位の後にはピリオド（任意）と空白が必要（"tbsp. "等）。
var unitPattern = buildUnitPattern()

// parenPattern は "(14 oz)" のような括弧付きサイズ注記にマッチする。
var parenPattern = regexp.MustCompile(`(?i)\(\s*[\d\s.,]+(?:oz|g|ml|lb|kg)?\s*\)`)

var spacePattern = regexp.MustCompile(`\s+`)

// buildUnitPattern は語彙テーブルから単位マッチ用の正規表現を構築する。
// 長い表記を先に並べ、"fluid ounces" が "fl" より優先されるようにする。
func buildUnitPattern() *regexp.Regexp {
	spellings := make([]string, 0, len(unitMap))
	for spelling := range unitMap {
		spellings = append(spellings, spelling)
	}
	sort.Slice(spellings, func(i, j int) bool {
		if len(spellings[i]) != len(spellings[j]) {
			return len(spellings[i]) > len(spellings[j])
		}
		return spellings[i] < spellings[j]
	})
	for i, s := range spellings {
		spellings[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(`(?i)^(` + strings.Join(spellings, "|") + `)\.?\s+`)
}

// Parse は材料文字列1行を構造化データに解析する。
// 左から右へ、(1)最初のカンマ以降を下ごしらえとして分離、
// (2)先頭の数量（範囲対応）、(3)単位語彙、(4)残りをアイテム、の順で処理する。
// どの段階でもエラーは発生せず、常にベストエフォートの結果を返す。
func Parse(text string) model.ParsedIngredient {
	var result model.ParsedIngredient

	remaining := strings.TrimSpace(text)
	if remaining == "" {
		return result
	}

	// 1. 下ごしらえの抽出（最初のカンマから行末まで）
	if idx := strings.Index(remaining, ","); idx >= 0 {
		result.Preparation = strings.TrimSpace(remaining[idx+1:])
		remaining = strings.TrimSpace(remaining[:idx])
	}

	// 2. 数量の抽出
	if m := amountPattern.FindStringSubmatch(remaining); m != nil {
		amount := parseNumber(m[1])
		result.Amount = &amount
		if m[2] != "" {
			amountMax := parseNumber(m[2])
			result.AmountMax = &amountMax
		}
		remaining = strings.TrimSpace(remaining[len(m[0]):])
	}

	// 3. 単位の抽出
	if m := unitPattern.FindStringSubmatch(remaining); m != nil {
		result.Unit = m[1]
		result.UnitNormalized = NormalizeUnit(m[1])
		remaining = strings.TrimSpace(remaining[len(m[0]):])
	}

	// 4. 残りがアイテム（括弧付きサイズ注記は除去）
	remaining = parenPattern.ReplaceAllString(remaining, "")
	remaining = spacePattern.ReplaceAllString(remaining, " ")
	result.Item = strings.TrimSpace(remaining)

	return result
}

// ParseAll は複数の材料文字列をまとめて解析する。
func ParseAll(texts []string) []model.ParsedIngredient {
	results := make([]model.ParsedIngredient, len(texts))
	for i, text := range texts {
		results[i] = Parse(text)
	}
	return results
}

// NormalizeUnit は単位表記を正規化済み略称に変換する。
// 語彙に無い表記は小文字化してそのまま返す。
func NormalizeUnit(unit string) string {
	lower := strings.ToLower(strings.TrimSpace(unit))
	if normalized, ok := unitMap[lower]; ok {
		return normalized
	}
	return lower
}

// parseNumber は数量トークン1つを数値に変換する。
// 対応形式: "2", "2.5", "1/2", "1 1/2", "½", "1½"。
func parseNumber(token string) float64 {
	token = strings.TrimSpace(token)

	// Unicode分数グリフ: 先行する整数部があれば加算する
	for i, r := range token {
		if frac, ok := fractionMap[r]; ok {
			whole := 0.0
			if head := strings.TrimSpace(token[:i]); head != "" {
				whole, _ = strconv.ParseFloat(head, 64)
			}
			return whole + frac
		}
	}

	// スラッシュ分数と帯分数: 空白区切りの各部分を合算する
	total := 0.0
	for _, part := range strings.Fields(token) {
		if num, denom, ok := strings.Cut(part, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(denom, 64)
			if err1 == nil && err2 == nil && d != 0 {
				total += n / d
			}
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err == nil {
			total += f
		}
	}

	return total
}
