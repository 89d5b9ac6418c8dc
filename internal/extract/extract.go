package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/moviecrawl/internal/domain"
)

// 以下规则都是全函数：
// - 节点不存在 -> 字段默认值（不是错误）
// - 文本格式不对 -> 字段默认值
// - 任一字段失败不影响其它字段
//
// 选择器非法时 goquery 返回空 Selection，同样落到默认值分支。

func extractTitle(root *goquery.Selection, sel Selectors) string {
	return textOr(firstText(root, sel.Title), domain.UnknownText)
}

func extractYear(root *goquery.Selection, sel Selectors) *int {
	if y, ok := parseYear(firstText(root, sel.Year)); ok {
		return &y
	}
	return nil
}

func extractRating(root *goquery.Selection, sel Selectors) *float64 {
	if f, ok := parseFloat(firstText(root, sel.Rating)); ok {
		return &f
	}
	return nil
}

func extractAgeRating(root *goquery.Selection, sel Selectors) string {
	return textOr(firstText(root, sel.AgeRating), domain.UnknownText)
}

// reviews 三个子字段彼此独立；区域缺失时全部为 0。
type reviews struct {
	User      int
	Critic    int
	Metascore int
}

func extractReviews(root *goquery.Selection, sel Selectors) reviews {
	block := root.Find(sel.ReviewsBlock).First()
	if block.Length() == 0 {
		return reviews{}
	}
	count := func(sub string) int {
		n, ok := ParseCount(firstText(block, sub))
		if !ok {
			return 0
		}
		return int(n)
	}
	return reviews{
		User:      count(sel.UserReviews),
		Critic:    count(sel.CriticReviews),
		Metascore: count(sel.Metascore),
	}
}

func extractVotes(root *goquery.Selection, sel Selectors) *int64 {
	if n, ok := ParseCount(firstText(root, sel.Votes)); ok {
		return &n
	}
	return nil
}

func extractGenres(root *goquery.Selection, sel Selectors) []string {
	out := []string{}
	root.Find(sel.GenreList).First().Find(sel.GenreChip).Each(func(_ int, s *goquery.Selection) {
		if t := normSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// extractDuration 取第一个带时/分标记的条目；年份、分级等条目会被跳过。
func extractDuration(root *goquery.Selection, sel Selectors) *int {
	var (
		minutes int
		found   bool
	)
	root.Find(sel.InlineMeta).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		minutes, found = ParseDuration(normSpace(s.Text()))
		return !found
	})
	if !found {
		return nil
	}
	return &minutes
}

func extractDirector(root *goquery.Selection, sel Selectors) string {
	return textOr(firstText(root, sel.Director), domain.UnknownText)
}

func extractBudget(root *goquery.Selection, sel Selectors) *int64 {
	if n, ok := ParseBudget(firstText(root, sel.Budget)); ok {
		return &n
	}
	return nil
}

func extractActors(root *goquery.Selection, sel Selectors) []string {
	out := make([]string, 0, domain.MaxActors)
	root.Find(sel.Actors).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := normSpace(s.Text()); t != "" {
			out = append(out, t)
		}
		return len(out) < domain.MaxActors
	})
	return out
}

func extractAspectRatio(root *goquery.Selection, sel Selectors) *float64 {
	if f, ok := ParseAspectRatio(firstText(root, sel.AspectRatio)); ok {
		return &f
	}
	return nil
}

func firstText(root *goquery.Selection, selector string) string {
	if strings.TrimSpace(selector) == "" {
		return ""
	}
	return normSpace(root.Find(selector).First().Text())
}

func textOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
