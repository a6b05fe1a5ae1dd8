package model

// User is the bot's account record. Identity arrives pre-authenticated
// from the messaging platform, so UserID doubles as the chat id.
type User struct {
	UserID      int64   `json:"userId"`
	Username    string  `json:"username"`
	Locale      string  `json:"locale"`
	Collections int     `json:"collections"`
	Cards       int     `json:"cards"`
	MenuID      int64   `json:"menuId"`
	PageLevel   int     `json:"pageLevel"`
	Session     *string `json:"session,omitempty"`
}

// Collection groups cards under a user. Key is the opaque public
// identifier other users can redeem to copy the collection.
type Collection struct {
	UserID      int64  `json:"userId"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cards       int    `json:"cards"`
	PageLevel   int    `json:"pageLevel"`
}

// Card is a single study item with its spaced-repetition state.
type Card struct {
	UserID             int64   `json:"userId"`
	Key                string  `json:"key"`
	CardKey            string  `json:"cardKey"`
	Name               string  `json:"name"`
	Description        string  `json:"description,omitempty"`
	Repetition         int     `json:"repetition"`
	Difficulty         int     `json:"difficulty"`
	NextRepetitionDate int64   `json:"nextRepetitionDate"`
	EasyFactor         float64 `json:"easyFactor"`
}
