package domain

// UnknownText 是文本类字段缺失时的默认值（title/age_rating/director）。
const UnknownText = "Unknown"

// MaxActors 是 MovieRecord.Actors 的上限（按文档顺序取前 N 个）。
const MaxActors = 3

// MovieRecord 是单个详情页解析得到的结构化记录（数据集的一行）。
//
// 约束：
// - 每个字段独立可选/有默认值：某字段缺失不影响其它字段
// - 指针字段为 nil 表示 null（输出为空单元格）
// - 构造后视为只读；字段顺序即输出列顺序（见 Columns）
type MovieRecord struct {
	Title           string   `json:"title"`
	Year            *int     `json:"year"`
	Rating          *float64 `json:"rating"`
	AgeRating       string   `json:"age_rating"`
	UserReviews     int      `json:"user_reviews"`
	CriticReviews   int      `json:"critic_reviews"`
	MetascoreReview int      `json:"metascore_review"`
	Votes           *int64   `json:"votes"`
	Genres          []string `json:"genres"`
	DurationMinutes *int     `json:"duration"`
	Director        string   `json:"director"`
	Budget          *int64   `json:"budget"`
	Actors          []string `json:"actors"`
	AspectRatio     *float64 `json:"aspect_ratio"`
}

// Columns 是输出表格的固定列顺序（与 MovieRecord 字段顺序一致）。
var Columns = []string{
	"title",
	"year",
	"rating",
	"age_rating",
	"user_reviews",
	"critic_reviews",
	"metascore_review",
	"votes",
	"genres",
	"duration",
	"director",
	"budget",
	"actors",
	"aspect_ratio",
}

// EmptyRecord 返回所有字段均为默认值的记录。
func EmptyRecord() MovieRecord {
	return MovieRecord{
		Title:     UnknownText,
		AgeRating: UnknownText,
		Director:  UnknownText,
		Genres:    []string{},
		Actors:    []string{},
	}
}
