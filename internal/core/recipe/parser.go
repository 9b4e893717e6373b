package recipe

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"fridge-chef/internal/pkg/common"
)

// field 目前累積中的欄位
type field int

const (
	fieldNone field = iota
	fieldTitle
	fieldDescription
	fieldIngredients
	fieldSteps
	fieldCalories
	fieldProtein
	fieldFats
	fieldCarbs
)

type header struct {
	prefix string // 小寫，含冒號
	field  field
}

// 欄位標頭；比對時不分大小寫
var headers = []header{
	{"title:", fieldTitle},
	{"description:", fieldDescription},
	{"ingredients:", fieldIngredients},
	{"steps:", fieldSteps},
	{"directions:", fieldSteps},
	{"calories:", fieldCalories},
	{"protein:", fieldProtein},
	{"fats:", fieldFats},
	{"carbohydrates:", fieldCarbs},
	{"carbs:", fieldCarbs},
}

var (
	bulletMarker   = regexp.MustCompile(`^(?:[-*•]\s*)+`)
	stepMarker     = regexp.MustCompile(`^(\d+)\s*[.)]\s*`)
	inlineStep     = regexp.MustCompile(`\s(\d+)[.)]`)
	integerPattern = regexp.MustCompile(`\d+`)
	decimalPattern = regexp.MustCompile(`\d*\.?\d+`)
	thousandsSep   = regexp.MustCompile(`(\d),(\d{3})`)
)

// ParseRecipes 將模型輸出解析為食譜。不合格的段落直接略過，永不回傳錯誤
func ParseRecipes(raw string) []common.Recipe {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	recipes := make([]common.Recipe, 0, RecipeCount)
	for _, section := range strings.Split(raw, SectionDelimiter) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		r := parseSection(section)
		if !r.Valid() {
			continue
		}
		recipes = append(recipes, r)
	}
	return recipes
}

// rawFields 單一段落掃描後的原始欄位內容
type rawFields map[field]string

// scanSection 單次掃描：遇到標頭就結算上一個欄位並開始新欄位
func scanSection(section string) rawFields {
	out := rawFields{}
	current := fieldNone
	var buf []string

	flush := func() {
		if current == fieldNone {
			return
		}
		out[current] = strings.TrimSpace(strings.Join(buf, "\n"))
	}

	for _, line := range strings.Split(section, "\n") {
		if f, rest, ok := matchHeader(line); ok {
			flush()
			current = f
			buf = []string{rest}
			continue
		}
		if current == fieldNone {
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return out
}

// matchHeader 判斷一行是否以欄位標頭開頭，回傳標頭後的內容。
// 容許 markdown 標題符號與粗體包裹，例如 "## Title:" 或 "**Title:** Soup"。
func matchHeader(line string) (field, string, bool) {
	s := strings.TrimSpace(line)
	s = strings.TrimSpace(strings.TrimLeft(s, "#"))
	s = strings.TrimPrefix(s, "**")

	lower := strings.ToLower(s)
	for _, h := range headers {
		if strings.HasPrefix(lower, h.prefix) {
			rest := strings.TrimLeft(s[len(h.prefix):], "*")
			return h.field, strings.TrimSpace(rest), true
		}
	}
	return fieldNone, "", false
}

func parseSection(section string) common.Recipe {
	f := scanSection(section)

	r := common.Recipe{
		Title:       cleanInline(f[fieldTitle]),
		Description: strings.TrimSpace(f[fieldDescription]),
		Ingredients: splitIngredients(f[fieldIngredients]),
		Steps:       splitSteps(f[fieldSteps]),
		Calories:    firstInt(f[fieldCalories]),
		Protein:     firstDecimal(f[fieldProtein]),
		Fats:        firstDecimal(f[fieldFats]),
		Carbs:       firstDecimal(f[fieldCarbs]),
	}
	if r.Title != "" {
		r.VideoLink = VideoSearchLink(r.Title)
	}
	return r
}

// cleanInline 標題只取第一行並去除殘留的粗體符號
func cleanInline(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
}

// splitIngredients 每行一項，去除項目符號與空白項
func splitIngredients(s string) []string {
	items := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// splitSteps 每行一步，去除編號；以編號開頭的行內若接續出現下一個編號也視為新步驟
func splitSteps(s string) []string {
	steps := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		for _, part := range splitInlineSteps(line) {
			part = strings.TrimSpace(stepMarker.ReplaceAllString(strings.TrimSpace(part), ""))
			if part != "" {
				steps = append(steps, part)
			}
		}
	}
	return steps
}

// splitInlineSteps 只在行首有編號時切分，且行內編號必須依序遞增，
// 例如 "1. a 2. b 3) c"；"烤到 180. 取出" 之類的數字保留原文。
func splitInlineSteps(line string) []string {
	lead := stepMarker.FindStringSubmatch(line)
	if lead == nil {
		return []string{line}
	}
	next, err := strconv.Atoi(lead[1])
	if err != nil {
		return []string{line}
	}
	next++

	parts := make([]string, 0, 2)
	start := 0
	for _, loc := range inlineStep.FindAllStringSubmatchIndex(line, -1) {
		// 編號後須接空白，比對時不吃掉空白以免漏掉緊接的下一個編號
		if loc[1] >= len(line) || (line[loc[1]] != ' ' && line[loc[1]] != '\t') {
			continue
		}
		n, err := strconv.Atoi(line[loc[2]:loc[3]])
		if err != nil || n != next {
			continue
		}
		parts = append(parts, line[start:loc[0]])
		start = loc[0]
		next++
	}
	return append(parts, line[start:])
}

// firstInt 取第一段整數，找不到為 0
func firstInt(s string) int {
	m := integerPattern.FindString(thousandsSep.ReplaceAllString(s, "$1$2"))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// firstDecimal 取第一段整數或小數，找不到為 0
func firstDecimal(s string) float64 {
	m := decimalPattern.FindString(thousandsSep.ReplaceAllString(s, "$1$2"))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// VideoSearchLink 產生食譜的影片搜尋連結
func VideoSearchLink(title string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(strings.TrimSpace(title)+" recipe")
}
