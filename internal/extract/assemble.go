package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/moviecrawl/internal/domain"
)

// Assemble 把所有字段规则的结果组装为一条 MovieRecord。
//
// 约束：
// - 纯函数：同一文档重复调用得到相同记录
// - 没有错误路径：缺失/畸形字段只会落到默认值
func Assemble(doc *goquery.Document, sel Selectors) domain.MovieRecord {
	if doc == nil {
		return domain.EmptyRecord()
	}
	root := doc.Selection
	rv := extractReviews(root, sel)

	return domain.MovieRecord{
		Title:           extractTitle(root, sel),
		Year:            extractYear(root, sel),
		Rating:          extractRating(root, sel),
		AgeRating:       extractAgeRating(root, sel),
		UserReviews:     rv.User,
		CriticReviews:   rv.Critic,
		MetascoreReview: rv.Metascore,
		Votes:           extractVotes(root, sel),
		Genres:          extractGenres(root, sel),
		DurationMinutes: extractDuration(root, sel),
		Director:        extractDirector(root, sel),
		Budget:          extractBudget(root, sel),
		Actors:          extractActors(root, sel),
		AspectRatio:     extractAspectRatio(root, sel),
	}
}

// Extractor 绑定一组选择器，负责 HTML -> MovieRecord。
type Extractor struct {
	Selectors Selectors
}

// NewExtractor 使用默认选择器并叠加 override。
func NewExtractor(override Selectors) Extractor {
	return Extractor{Selectors: DefaultSelectors().Merge(override)}
}

// Parse 构建文档并组装记录。唯一的错误来源是文档构建失败。
func (e Extractor) Parse(html []byte) (domain.MovieRecord, error) {
	if len(html) == 0 {
		return domain.MovieRecord{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.MovieRecord{}, fmt.Errorf("构建文档失败：%w", err)
	}
	return Assemble(doc, e.Selectors), nil
}
