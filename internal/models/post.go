package models

// Post categories.
const (
	PostCategoryFree   = "자유"
	PostCategoryNotice = "공지"
)

// PostKind describes community posts.
var PostKind = Kind{
	Name:         "post",
	Plural:       "posts",
	NumberField:  "post_number",
	BulkField:    "postNumbers",
	Categories:   []string{PostCategoryFree, PostCategoryNotice},
	SearchFields: []string{"title", "tag"},
}

// Post is a community board entry.
type Post struct {
	Item       `bson:",inline"`
	PostNumber int64 `gorm:"uniqueIndex;not null" bson:"post_number" json:"post_number"`
}

func (*Post) Kind() Kind { return PostKind }

func (p *Post) Number() int64 { return p.PostNumber }

func (p *Post) SetNumber(n int64) { p.PostNumber = n }

// ApplyDetails is a no-op; posts have no kind-specific fields.
func (*Post) ApplyDetails([]byte) error { return nil }

func (*Post) Details() map[string]any { return nil }
