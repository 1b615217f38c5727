package schema

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hitoshi/simmer/internal/model"
)

// durationPattern はISO-8601のPT形式（PT1H30M等）にマッチする。
var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration はISO-8601形式の時間文字列を分単位に変換する。
// 例: "PT1H30M" -> 90, "PT45M" -> 45, "PT2H" -> 120。
// 秒は最も近い分に丸める。欠けている要素は0として扱う。
// 形式に合わない入力にはnilを返す。
func ParseDuration(duration string) *int {
	if duration == "" {
		return nil
	}

	m := durationPattern.FindStringSubmatch(strings.TrimSpace(duration))
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return nil
	}

	hours := atoiOrZero(m[1])
	minutes := atoiOrZero(m[2])
	seconds := atoiOrZero(m[3])

	total := hours*60 + minutes + int(math.Round(float64(seconds)/60.0))
	return &total
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Servings は分量表記の解析結果を表す。
type Servings struct {
	Count int
	Unit  string
}

var servingsNumberPattern = regexp.MustCompile(`(\d+)`)
var servingsUnitPattern = regexp.MustCompile(`\d+\s*(\w+)`)

// ParseServings はrecipeYieldの自由テキストから人数・個数を抽出する。
// 例: "4 servings" -> {4, "servings"}, "Makes 12 cookies" -> {12, "cookies"}。
// 配列の場合は最初の要素を使う。数字に続く単語が無い場合の単位は"servings"。
// 数字が見つからない場合はnilを返す。
func ParseServings(yield model.StringOrList) *Servings {
	text := yield.First()
	if text == "" {
		return nil
	}

	m := servingsNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	count, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}

	unit := "servings"
	if um := servingsUnitPattern.FindStringSubmatch(text); um != nil {
		unit = strings.ToLower(um[1])
	}

	return &Servings{Count: count, Unit: unit}
}

// instructionNode はrecipeInstructionsの1要素を表す。
// HowToStep（text保持）とHowToSection（itemListElementにネスト）の両方を受ける。
type instructionNode struct {
	Type            string            `json:"@type"`
	Text            string            `json:"text"`
	ItemListElement []json.RawMessage `json:"itemListElement"`
}

// NormalizeInstructions はrecipeInstructionsの表記揺れを
// 順序付きの手順テキスト配列に平坦化する。
// 受け付ける形式: 文字列、文字列配列、HowToStepオブジェクト配列、
// ネストしたHowToSection配列。深さ優先で文書順を保持する。
// 改行を含む単一文字列は行単位に分割する。
func NormalizeInstructions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var result []string

	// 単一文字列の場合: 改行区切りの手順として扱う
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, line := range strings.Split(s, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	// 配列の場合: 各要素を再帰的に処理する
	var nodes []json.RawMessage
	if err := json.Unmarshal(raw, &nodes); err == nil {
		for _, node := range nodes {
			appendInstruction(&result, node)
		}
	}

	return result
}

// appendInstruction は1ノードを処理して結果に追記する。
// HowToSectionはネストした要素を深さ優先で展開する。
func appendInstruction(result *[]string, raw json.RawMessage) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			*result = append(*result, trimmed)
		}
		return
	}

	var node instructionNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return
	}

	if node.Type == "HowToSection" && len(node.ItemListElement) > 0 {
		for _, child := range node.ItemListElement {
			appendInstruction(result, child)
		}
		return
	}

	if trimmed := strings.TrimSpace(node.Text); trimmed != "" {
		*result = append(*result, trimmed)
	}
}

// NormalizeList はcategory/cuisine/keywordsの表記揺れをタグ配列に正規化する。
// 文字列の場合はカンマで分割する。各要素をトリムし、空要素は捨てる。
// 大文字小文字は保持し、重複排除は行わない（重複の扱いは利用側の責務）。
func NormalizeList(value model.StringOrList) []string {
	var result []string

	for _, v := range value {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}

	return result
}

var nutritionValuePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// ParseNutritionValue は栄養情報の自由テキストから最初の数値を抽出する。
// 例: "200 calories" -> 200, "15g" -> 15, "3.5 g" -> 3.5。
// 数字が含まれない場合はnilを返す。
func ParseNutritionValue(value string) *float64 {
	if value == "" {
		return nil
	}

	m := nutritionValuePattern.FindStringSubmatch(value)
	if m == nil {
		return nil
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}
