package extract

// Selectors 把每个字段的 CSS 选择器作为数据（而不是代码）。
// 页面模板漂移时只需改配置文件，不需要重新发布。
//
// 默认值对应详情页模板的稳定锚点（data-testid / 固定 class）；
// 配置中出现的非空字段会逐项覆盖默认值（见 Merge）。
type Selectors struct {
	Title     string `yaml:"title" json:"title"`
	Year      string `yaml:"year" json:"year"`
	Rating    string `yaml:"rating" json:"rating"`
	AgeRating string `yaml:"age_rating" json:"age_rating"`

	ReviewsBlock  string `yaml:"reviews_block" json:"reviews_block"`
	UserReviews   string `yaml:"user_reviews" json:"user_reviews"`
	CriticReviews string `yaml:"critic_reviews" json:"critic_reviews"`
	Metascore     string `yaml:"metascore" json:"metascore"`

	Votes string `yaml:"votes" json:"votes"`

	GenreList string `yaml:"genre_list" json:"genre_list"`
	GenreChip string `yaml:"genre_chip" json:"genre_chip"`

	InlineMeta  string `yaml:"inline_meta" json:"inline_meta"`
	Director    string `yaml:"director" json:"director"`
	Budget      string `yaml:"budget" json:"budget"`
	Actors      string `yaml:"actors" json:"actors"`
	AspectRatio string `yaml:"aspect_ratio" json:"aspect_ratio"`
}

// DefaultSelectors 返回内置默认选择器。
func DefaultSelectors() Selectors {
	return Selectors{
		Title:     `span[data-testid="hero__primary-text"]`,
		Year:      `a[href*="/releaseinfo"]`,
		Rating:    `div[data-testid="hero-rating-bar__aggregate-rating__score"] > span:first-child`,
		AgeRating: `a[href*="/parentalguide"]`,

		// 子选择器在 ReviewsBlock 内部查找。
		ReviewsBlock:  `ul[data-testid="reviewContent-all-reviews"]`,
		UserReviews:   `a[href*="/reviews/"] .score`,
		CriticReviews: `a[href*="/externalreviews/"] .score`,
		Metascore:     `a[href*="/criticreviews/"] .metacritic-score-box`,

		Votes: `div[data-testid="hero-rating-bar__aggregate-rating__score"] + div`,

		GenreList: `div.ipc-chip-list__scroller`,
		GenreChip: `span.ipc-chip__text`,

		InlineMeta:  `ul.ipc-inline-list li.ipc-inline-list__item`,
		Director:    `a.ipc-metadata-list-item__list-content-item[href*="/name/"]`,
		Budget:      `li[data-testid="title-boxoffice-budget"] .ipc-metadata-list-item__list-content-item`,
		Actors:      `div[data-testid="title-cast-item"] a[data-testid="title-cast-item__actor"]`,
		AspectRatio: `li[data-testid="title-techspec_aspectratio"] .ipc-metadata-list-item__list-content-item`,
	}
}

// Merge 以 s 为基础，用 override 中的非空字段逐项覆盖。
func (s Selectors) Merge(override Selectors) Selectors {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&s.Title, override.Title)
	pick(&s.Year, override.Year)
	pick(&s.Rating, override.Rating)
	pick(&s.AgeRating, override.AgeRating)
	pick(&s.ReviewsBlock, override.ReviewsBlock)
	pick(&s.UserReviews, override.UserReviews)
	pick(&s.CriticReviews, override.CriticReviews)
	pick(&s.Metascore, override.Metascore)
	pick(&s.Votes, override.Votes)
	pick(&s.GenreList, override.GenreList)
	pick(&s.GenreChip, override.GenreChip)
	pick(&s.InlineMeta, override.InlineMeta)
	pick(&s.Director, override.Director)
	pick(&s.Budget, override.Budget)
	pick(&s.Actors, override.Actors)
	pick(&s.AspectRatio, override.AspectRatio)
	return s
}
