package ingredient

import (
	"regexp"
	"strings"
)

// categoryRule は売り場カテゴリ1つ分のキーワード規則を表す。
type categoryRule struct {
	category string
	pattern  *regexp.Regexp
}

// categoryRules は売り場カテゴリの判定規則。先にマッチした規則が勝つ。
// ショッピングリストのグルーピング用の参考情報であり、
// 解析処理の制御には使われない。
var categoryRules = []categoryRule{
	{"produce", regexp.MustCompile(`\b(lettuce|tomato|onion|garlic|pepper|carrot|celery|potato|broccoli|spinach|kale|cucumber|zucchini|mushroom|avocado|lemon|lime|orange|apple|banana|berry|fruit|vegetable)\b`)},
	{"dairy", regexp.MustCompile(`\b(milk|cream|cheese|butter|yogurt|sour cream|cottage cheese|egg)\b`)},
	{"meat", regexp.MustCompile(`\b(chicken|beef|pork|lamb|turkey|fish|salmon|tuna|shrimp|bacon|sausage|ground)\b`)},
	{"bakery", regexp.MustCompile(`\b(bread|roll|bun|tortilla|pita|bagel)\b`)},
	{"pantry", regexp.MustCompile(`\b(flour|sugar|salt|oil|vinegar|sauce|paste|stock|broth|rice|pasta|noodle|bean|lentil|spice|herb|seasoning)\b`)},
}

// Categorize はアイテム名から売り場カテゴリを導出する。
// どの規則にもマッチしない場合は "other"、アイテムが空の場合は空文字列を返す。
func Categorize(item string) string {
	if item == "" {
		return ""
	}

	lower := strings.ToLower(item)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(lower) {
			return rule.category
		}
	}

	return "other"
}
