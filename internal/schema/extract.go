// Package schema はHTMLに埋め込まれたschema.org構造化データの
// 抽出と各フィールドの正規化を提供する。
package schema

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/simmer/internal/model"
)

// typeProbe は@typeフィールドだけを先行デコードするための軽量構造体。
type typeProbe struct {
	Type model.TypeTag `json:"@type"`
}

// graphProbe は@graphフィールドだけを先行デコードするための軽量構造体。
type graphProbe struct {
	Graph []json.RawMessage `json:"@graph"`
}

// Extract はHTMLからschema.org Recipeノードを抽出する。
// JSON-LDブロックを文書順に走査し、(1)ブロック自体がRecipeノード、
// (2)@graph配列内のRecipeノード、(3)トップレベル配列内のRecipeノード、
// の順で最初に見つかったものを返す。
// JSONとして不正なブロックはスキップし、ページ全体の処理は中断しない。
// Recipeノードが存在しないページではnilを返す（エラーではなく正常系）。
func Extract(html string) (*model.SchemaRecipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var found *model.SchemaRecipe

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		block := strings.TrimSpace(s.Text())
		if block == "" {
			return true
		}

		if recipe := findRecipeNode(json.RawMessage(block)); recipe != nil {
			found = recipe
			return false
		}
		return true
	})

	return found, nil
}

// findRecipeNode は1つのJSON-LDブロックからRecipeノードを探す。
// 不正なJSONはnil扱いでスキップする。
func findRecipeNode(block json.RawMessage) *model.SchemaRecipe {
	// ブロック自体がオブジェクトの場合
	var probe typeProbe
	if err := json.Unmarshal(block, &probe); err == nil {
		if probe.Type.Contains("Recipe") {
			return decodeRecipe(block)
		}

		// @graph形式（レシピサイトで最も一般的な形式）
		var graph graphProbe
		if err := json.Unmarshal(block, &graph); err == nil && len(graph.Graph) > 0 {
			if recipe := findInNodes(graph.Graph); recipe != nil {
				return recipe
			}
		}
		return nil
	}

	// ブロック自体が配列の場合
	var nodes []json.RawMessage
	if err := json.Unmarshal(block, &nodes); err == nil {
		return findInNodes(nodes)
	}

	return nil
}

// findInNodes はノード配列から最初のRecipeノードを返す。
func findInNodes(nodes []json.RawMessage) *model.SchemaRecipe {
	for _, node := range nodes {
		var probe typeProbe
		if err := json.Unmarshal(node, &probe); err != nil {
			continue
		}
		if probe.Type.Contains("Recipe") {
			if recipe := decodeRecipe(node); recipe != nil {
				return recipe
			}
		}
	}
	return nil
}

// decodeRecipe はRecipeノードをSchemaRecipeにデコードする。
func decodeRecipe(node json.RawMessage) *model.SchemaRecipe {
	var recipe model.SchemaRecipe
	if err := json.Unmarshal(node, &recipe); err != nil {
		return nil
	}
	return &recipe
}

// SourceName はschemaのpublisher/authorから提供元名を導出する。
// publisherオブジェクトのnameを最優先し、次にauthor（オブジェクトまたは文字列）を使う。
// どちらも無い場合は空文字列を返す。
func SourceName(recipe *model.SchemaRecipe) string {
	type named struct {
		Name string `json:"name"`
	}

	if len(recipe.Publisher) > 0 {
		var pub named
		if err := json.Unmarshal(recipe.Publisher, &pub); err == nil && pub.Name != "" {
			return pub.Name
		}
	}

	if len(recipe.Author) > 0 {
		var s string
		if err := json.Unmarshal(recipe.Author, &s); err == nil && s != "" {
			return s
		}
		var auth named
		if err := json.Unmarshal(recipe.Author, &auth); err == nil && auth.Name != "" {
			return auth.Name
		}
		// authorが配列で表記されるサイトがある
		var list []named
		if err := json.Unmarshal(recipe.Author, &list); err == nil && len(list) > 0 {
			return list[0].Name
		}
	}

	return ""
}
