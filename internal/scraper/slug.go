package scraper

import (
	"regexp"
	"strings"
)

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify はレシピ名とソースドメインから一意なスラッグを導出する。
// 名前部分は小文字化・ハイフン連結で最大100文字、ドメイン部分は
// ドットをハイフンに置換して最大30文字に切り詰める。
// 同名レシピでもソースが異なればスラッグが衝突しないようにする。
func Slugify(name, domain string) string {
	namePart := nonSlugPattern.ReplaceAllString(strings.ToLower(name), "-")
	namePart = strings.Trim(namePart, "-")
	if len(namePart) > 100 {
		namePart = namePart[:100]
		namePart = strings.TrimRight(namePart, "-")
	}

	domainPart := strings.ReplaceAll(strings.ToLower(domain), ".", "-")
	if len(domainPart) > 30 {
		domainPart = domainPart[:30]
	}

	if namePart == "" {
		return domainPart
	}
	return namePart + "-" + domainPart
}
