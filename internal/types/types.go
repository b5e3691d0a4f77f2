package types

import "time"

// SentimentLabel is the overall sentiment the scorer assigns to a post.
type SentimentLabel string

const (
	SentimentVeryPositive SentimentLabel = "Very Positive"
	SentimentPositive     SentimentLabel = "Positive"
	SentimentNeutral      SentimentLabel = "Neutral"
	SentimentNegative     SentimentLabel = "Negative"
	SentimentVeryNegative SentimentLabel = "Very Negative"
)

// SentimentLabels lists every valid SentimentLabel in schema order.
var SentimentLabels = []SentimentLabel{
	SentimentVeryPositive,
	SentimentPositive,
	SentimentNeutral,
	SentimentNegative,
	SentimentVeryNegative,
}

// BiasDirection is the political lean the scorer detects in a post.
type BiasDirection string

const (
	BiasStrongLeft    BiasDirection = "strong left"
	BiasModerateLeft  BiasDirection = "moderate left"
	BiasNeutral       BiasDirection = "neutral"
	BiasModerateRight BiasDirection = "moderate right"
	BiasStrongRight   BiasDirection = "strong right"
	BiasNonPolitical  BiasDirection = "non-political"
)

// BiasDirections lists every valid BiasDirection in schema order.
var BiasDirections = []BiasDirection{
	BiasStrongLeft,
	BiasModerateLeft,
	BiasNeutral,
	BiasModerateRight,
	BiasStrongRight,
	BiasNonPolitical,
}

// Post is a publishable unit of content awaiting (or carrying) an AI rating.
type Post struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Published     bool      `json:"published"`
	IPFSHash      *string   `json:"ipfs_hash,omitempty"`
	AuthorAddress string    `json:"author_address"`
	UserRating    int       `json:"user_rating"`
	AIRatingID    *int64    `json:"ai_rating_id,omitempty"`
	InternalID    *int64    `json:"internal_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPost is the input for inserting a post.
type NewPost struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Published     bool    `json:"published"`
	AuthorAddress string  `json:"author_address"`
	IPFSHash      *string `json:"ipfs_hash,omitempty"`
}

// CreatePostsRequest is the body of a post ingestion request.
type CreatePostsRequest struct {
	Posts []NewPost `json:"posts"`
}

// CreatePostsResponse lists the ids of inserted posts in request order.
type CreatePostsResponse struct {
	IDs []int64 `json:"ids"`
}

// Assessment is the structured quality assessment produced by the content scorer.
// JSON field names are the exact names the scoring model is asked to emit.
type Assessment struct {
	Rating                   int            `json:"rating"`
	Justification            string         `json:"justification"`
	SentimentLabel           SentimentLabel `json:"sentimentAnalysisLabel"`
	SentimentScore           float64        `json:"sentimentAnalysisScore"`
	BiasScore                float64        `json:"biasDetectionScore"`
	BiasDirection            BiasDirection  `json:"biasDetectionDirection"`
	OriginalityScore         float64        `json:"originalityScore"`
	SimilarityScore          float64        `json:"similarityScore"`
	ReadabilityFleschKincaid float64        `json:"readabilityFleschKincaid"`
	ReadabilityGunningFog    float64        `json:"readabilityGunningFog"`
	MainTopic                string         `json:"mainTopic"`
	SecondaryTopics          []string       `json:"secondaryTopics"`
}

// Rating is the persisted outcome of scoring or deduplicating one post.
type Rating struct {
	ID                       int64          `json:"id"`
	PostID                   int64          `json:"post_id"`
	Rating                   int            `json:"rating"`
	Justification            string         `json:"justification"`
	SentimentLabel           SentimentLabel `json:"sentiment_label"`
	SentimentScore           float64        `json:"sentiment_score"`
	BiasScore                float64        `json:"bias_score"`
	BiasDirection            BiasDirection  `json:"bias_direction"`
	OriginalityScore         float64        `json:"originality_score"`
	SimilarityScore          float64        `json:"similarity_score"`
	ReadabilityFleschKincaid float64        `json:"readability_flesch_kincaid"`
	ReadabilityGunningFog    float64        `json:"readability_gunning_fog"`
	MainTopic                string         `json:"main_topic"`
	SecondaryTopics          []string       `json:"secondary_topics"`
	Embedding                []float32      `json:"-"`
	CreatedAt                time.Time      `json:"created_at"`
}

// RatingFromAssessment builds a rating for postID from a scorer assessment.
// The scorer's own similarity value is discarded in favour of similarity.
func RatingFromAssessment(postID int64, a Assessment, embedding []float32, similarity float64) Rating {
	topics := make([]string, len(a.SecondaryTopics))
	copy(topics, a.SecondaryTopics)
	return Rating{
		PostID:                   postID,
		Rating:                   a.Rating,
		Justification:            a.Justification,
		SentimentLabel:           a.SentimentLabel,
		SentimentScore:           a.SentimentScore,
		BiasScore:                a.BiasScore,
		BiasDirection:            a.BiasDirection,
		OriginalityScore:         a.OriginalityScore,
		SimilarityScore:          similarity,
		ReadabilityFleschKincaid: a.ReadabilityFleschKincaid,
		ReadabilityGunningFog:    a.ReadabilityGunningFog,
		MainTopic:                a.MainTopic,
		SecondaryTopics:          topics,
		Embedding:                embedding,
	}
}

const (
	DuplicateJustification = "Duplicate content. This post is too similar to existing content."
	DuplicateMainTopic     = "duplicate content"
	DuplicateTopic         = "duplicate"
)

// DuplicateRating builds the zero-quality rating recorded for a near-duplicate post.
func DuplicateRating(postID int64, embedding []float32, similarity float64) Rating {
	return Rating{
		PostID:                   postID,
		Rating:                   0,
		Justification:            DuplicateJustification,
		SentimentLabel:           SentimentNeutral,
		SentimentScore:           0.5,
		BiasScore:                0.0,
		BiasDirection:            BiasNeutral,
		OriginalityScore:         0.0,
		SimilarityScore:          similarity,
		ReadabilityFleschKincaid: 0.0,
		ReadabilityGunningFog:    0.0,
		MainTopic:                DuplicateMainTopic,
		SecondaryTopics:          []string{DuplicateTopic},
		Embedding:                embedding,
	}
}

// IsDuplicate reports whether the rating was synthesized for a duplicate post.
func (r Rating) IsDuplicate() bool {
	return r.MainTopic == DuplicateMainTopic &&
		len(r.SecondaryTopics) == 1 && r.SecondaryTopics[0] == DuplicateTopic
}

// StagedRating is a rating waiting in a unit of work to be committed for its post.
type StagedRating struct {
	Post   Post
	Rating Rating
}

// StoredEmbedding is a non-null embedding held by a rating.
// RatingID is zero for embeddings staged but not yet committed.
type StoredEmbedding struct {
	RatingID  int64
	PostID    int64
	Embedding []float32
}

// StoreStats summarizes post and rating counts.
type StoreStats struct {
	Posts          int64 `json:"posts"`
	PublishedPosts int64 `json:"published_posts"`
	RatedPosts     int64 `json:"rated_posts"`
	UnratedPosts   int64 `json:"unrated_posts"`
	Duplicates     int64 `json:"duplicates"`
}

// BatchResult reports the outcome of one scoring batch.
type BatchResult struct {
	RunID      string    `json:"run_id"`
	Candidates int       `json:"candidates"`
	Processed  int       `json:"processed"`
	Duplicates int       `json:"duplicates"`
	Errors     int       `json:"errors"`
	Committed  bool      `json:"committed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunState is the lifecycle state of a tracked scoring run.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunStatus is the last known state of a scoring run.
type RunStatus struct {
	ID         string       `json:"id"`
	State      RunState     `json:"state"`
	Result     *BatchResult `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// TriggerResponse acknowledges a scoring trigger.
type TriggerResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// SnapshotURLResponse carries a time-limited snapshot download link.
type SnapshotURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	EmbeddingModel string `json:"embedding_model"`
	ScoringModel   string `json:"scoring_model"`
	SchemaVersion  int64  `json:"schema_version"`
}
