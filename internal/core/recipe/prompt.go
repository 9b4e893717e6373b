package recipe

import (
	"errors"
	"fmt"
	"strings"

	"fridge-chef/internal/pkg/common"
)

// SectionDelimiter 分隔各食譜段落，與解析器共用
const SectionDelimiter = "---"

// RecipeCount 每次要求模型產生的食譜數
const RecipeCount = 3

// ErrEmptyInventory 食材為空時不得建立 prompt
var ErrEmptyInventory = errors.New("inventory is empty")

const recipePromptTemplate = `You are a helpful cooking assistant. Using ONLY the following ingredients, suggest exactly %d distinct recipes.

Available ingredients: %s

Rules:
- Use only the ingredients listed above. Do not add anything else.
- Each recipe must be different from the others.
- Use exactly the field names shown below, each at the start of its own line.
- List each ingredient on its own line starting with "- ".
- Number each step on its own line ("1.", "2.", ...).
- Give Calories as a whole number and Protein, Fats and Carbohydrates in grams.
- Separate recipes with a line containing only %s.
- Do not write anything before the first recipe or after the last one.

Format:
Title: <recipe name>
Description: <one or two sentences>
Ingredients:
- <ingredient>
Steps:
1. <step>
Calories: <number>
Protein: <number>g
Fats: <number>g
Carbohydrates: <number>g
%s

Example:
Title: Cheesy Scrambled Eggs
Description: Soft scrambled eggs folded with melted cheese.
Ingredients:
- Eggs
- Cheese
Steps:
1. Whisk the eggs in a bowl.
2. Cook the eggs over low heat, stirring gently.
3. Fold in the cheese and serve.
Calories: 320
Protein: 22g
Fats: 24g
Carbohydrates: 2g
%s`

// BuildRecipePrompt 依食材清單產生固定格式的 prompt；相同輸入必得相同輸出
func BuildRecipePrompt(inventory []common.Ingredient) (string, error) {
	names := uniqueNames(inventory)
	if len(names) == 0 {
		return "", ErrEmptyInventory
	}
	return fmt.Sprintf(recipePromptTemplate,
		RecipeCount,
		strings.Join(names, ", "),
		SectionDelimiter,
		SectionDelimiter,
		SectionDelimiter,
	), nil
}

const generalPromptTemplate = `You are a friendly kitchen and nutrition assistant inside a meal-tracking app.
Answer the user's message in a few short sentences of plain text. Do not use markdown.
%s
User: %s`

// BuildGeneralPrompt 一般對話的 prompt，附上目前食材作為背景
func BuildGeneralPrompt(inventory []common.Ingredient, utterance string) string {
	fridge := "The user's fridge is currently empty."
	if names := uniqueNames(inventory); len(names) > 0 {
		fridge = "The user's fridge currently contains: " + strings.Join(names, ", ") + "."
	}
	return fmt.Sprintf(generalPromptTemplate, fridge, strings.TrimSpace(utterance))
}

// uniqueNames 保留原順序並去除重複（不分大小寫）與空白名稱
func uniqueNames(inventory []common.Ingredient) []string {
	seen := make(map[string]struct{}, len(inventory))
	names := make([]string, 0, len(inventory))
	for _, ing := range inventory {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}
