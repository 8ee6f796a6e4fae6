package api

// Character is a voiced participant in a story. BulbulSpeaker identifies the
// synthesis voice used by the audio service for this character.
type Character struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	VoiceProfile  string `json:"voice_profile"`
	BulbulSpeaker string `json:"bulbul_speaker"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// Choice is one branch option attached to a choice node.
type Choice struct {
	ID         string `json:"id"`
	ChoiceKey  string `json:"choice_key"`
	Text       string `json:"text"`
	NextNodeID string `json:"next_node_id,omitempty"`
}

// Node types as delivered by the story service.
const (
	NodeTypeNarration = "narration"
	NodeTypeDialogue  = "dialogue"
	NodeTypeChoice    = "choice"
	NodeTypeEnd       = "end"
)

// StoryNode is one element of a story graph. Text is already in the language
// the detail payload was requested with.
type StoryNode struct {
	ID           string     `json:"id"`
	NodeType     string     `json:"node_type"`
	DisplayOrder int        `json:"display_order"`
	IsStart      bool       `json:"is_start"`
	IsEnd        bool       `json:"is_end"`
	Text         string     `json:"text"`
	Character    *Character `json:"character,omitempty"`
	Choices      []Choice   `json:"choices,omitempty"`
}

// Story is a catalog entry.
type Story struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Language       string `json:"language"`
	AgeRange       string `json:"age_range"`
	Region         string `json:"region"`
	Moral          string `json:"moral,omitempty"`
	DurationMin    int    `json:"duration_min"`
	CoverImage     string `json:"cover_image"`
	CharacterCount int    `json:"character_count"`
	ChoiceCount    int    `json:"choice_count"`
}

// StoryDetail carries the full node graph for one (slug, language) pair.
type StoryDetail struct {
	Story
	AvailableLanguages []string    `json:"available_languages"`
	Characters         []Character `json:"characters"`
	Nodes              []StoryNode `json:"nodes"`
	StartNodeID        string      `json:"start_node_id"`
}

// StoryFilters narrows a catalog listing.
type StoryFilters struct {
	Language string
	AgeRange string
	Region   string
	Search   string
	Page     int
	Limit    int
}

// Pagination describes a catalog page.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// StoryListResponse is a paginated catalog listing.
type StoryListResponse struct {
	Data       []Story    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// AudioResource is the result of resolving (node, language, speaker) to a
// playable URL. The URL may point at an undeployed placeholder location; see
// audiocache.Usable.
type AudioResource struct {
	NodeID       string  `json:"node_id"`
	Language     string  `json:"language"`
	CodeMixRatio float64 `json:"code_mix_ratio"`
	Speaker      string  `json:"speaker"`
	AudioURL     string  `json:"audio_url"`
	DurationSec  float64 `json:"duration_sec,omitempty"`
	FileSize     int64   `json:"file_size,omitempty"`
	IsCached     bool    `json:"is_cached"`
}

// TokenResponse is the anonymous-session grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresIn   int    `json:"expires_in"`
}

// MakeChoiceRequest submits a branch selection for a choice node.
type MakeChoiceRequest struct {
	NodeID    string `json:"node_id"`
	ChoiceKey string `json:"choice_key"`
}

// MakeChoiceResponse returns the resolved next node.
type MakeChoiceResponse struct {
	Success  bool      `json:"success"`
	NextNode StoryNode `json:"next_node"`
	Progress struct {
		CompletionPercentage float64 `json:"completion_percentage"`
		ChoicesMadeCount     int     `json:"choices_made_count"`
	} `json:"progress"`
}

// ProgressUpdate reports listening position to the service. The endpoint
// expects query parameters, not a JSON body.
type ProgressUpdate struct {
	StoryID       string
	CurrentNodeID string
	IsCompleted   bool
	TimeSpentSec  int
}
