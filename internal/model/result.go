package model

// ScrapeResult は1URLのスクレイプ処理の型付き結果を表す。
// オーケストレーターは例外を呼び出し元に伝播させず、
// すべての結果（成功・失敗）をこの型で返す。
type ScrapeResult struct {
	Success  bool
	RecipeID string
	Error    string
	URL      string
}

// URLError はバッチ処理中の1URLあたりのエラーを表す。
type URLError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BatchResult はキューバッチ処理1回分の集計結果を表す。
type BatchResult struct {
	Processed int        `json:"processed"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Errors    []URLError `json:"errors"`
}

// DomainError はURL発見処理中の1ドメインあたりのエラーを表す。
type DomainError struct {
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

// DiscoveryResult はURL発見処理1回分の集計結果を表す。
type DiscoveryResult struct {
	DomainsProcessed int           `json:"domainsProcessed"`
	URLsDiscovered   int           `json:"urlsDiscovered"`
	URLsAdded        int           `json:"urlsAdded"`
	Errors           []DomainError `json:"errors"`
}
