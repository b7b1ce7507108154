package models

// VideoType identifies where a resolved video came from.
type VideoType string

const (
	VideoTypeStatic VideoType = "static"
	VideoTypeAI     VideoType = "ai"
)

// VideoStrategy is the routing decision made for a product before any video
// is fetched or generated.
type VideoStrategy string

const (
	// StrategyStatic reuses a pre-rendered asset at a predictable URL.
	StrategyStatic VideoStrategy = "static"
	// StrategyAIGenerated requests a fresh video from the generation service.
	StrategyAIGenerated VideoStrategy = "ai-generated"
	// StrategyHybrid tries the static asset first, then falls back to AI.
	StrategyHybrid VideoStrategy = "hybrid"
	// StrategyFallback marks a hybrid selection that actually took the AI
	// fallback path.
	StrategyFallback VideoStrategy = "fallback"
)

// VideoSelection is the resolved, playable video for one product. It is
// created at most once per product per run and never reused across products.
type VideoSelection struct {
	URL          string        `json:"url"`
	Type         VideoType     `json:"type"`
	Source       string        `json:"source"`
	Strategy     VideoStrategy `json:"strategy"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
}
