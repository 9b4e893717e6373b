// Package intent 判斷使用者訊息屬於哪一類請求
package intent

import "strings"

// Intent 使用者訊息的意圖
type Intent int

const (
	General Intent = iota
	RecipeRequest
	FridgeQuery
)

// String returns a human-readable intent.
func (i Intent) String() string {
	switch i {
	case RecipeRequest:
		return "recipe_request"
	case FridgeQuery:
		return "fridge_query"
	default:
		return "general"
	}
}

// 觸發詞屬於對外行為的一部分，修改會改變分類結果
var (
	recipeTriggers = []string{
		"make",
		"cook",
		"recipe",
		"recipes",
		"what can i make",
		"what meals can i make",
		"what to cook",
		"suggest a recipe",
		"give me some recipes",
		"meal",
		"show me recipes",
		"generate recipes",
	}

	fridgeTriggers = []string{
		"what do i have in the fridge",
		"my fridge",
	}
)

type rule struct {
	intent   Intent
	triggers []string
}

// 依優先順序排列：RecipeRequest > FridgeQuery
var rules = []rule{
	{RecipeRequest, recipeTriggers},
	{FridgeQuery, fridgeTriggers},
}

// Classify 不分大小寫比對子字串，第一個命中的規則勝出；皆未命中為 General
func Classify(utterance string) Intent {
	lower := strings.ToLower(utterance)
	for _, r := range rules {
		for _, t := range r.triggers {
			if strings.Contains(lower, t) {
				return r.intent
			}
		}
	}
	return General
}
