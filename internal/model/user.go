package model

import "time"

type User struct {
	ID              string
	SocialUsername  string
	ContractAddress string
	DisplayName     string
	AvatarURL       string
	Verified        bool
	EthAddress      string
	SolAddress      string
	EthGasSpent     float64
	SolGasSpent     float64
	EthBalance      float64
	SolBalance      float64
	TokenBalance    float64
	TokenValue      float64
	FollowerCount   int64
	Rating          float64
	PendingMessage  *Message
	Location        string
	SourceIP        string
	CreatedAt       time.Time
}

type Message struct {
	Text      string
	Hashtags  []string
	CreatedAt time.Time
}

// UserFilter addresses a single record: a username is unique within a contract.
type UserFilter struct {
	ContractAddress string
	SocialUsername  string
}

// UserUpdate is a partial update. Nil fields are left untouched.
// TokenDelta is added to both the token balance and the token value by the
// store itself and wins over TokenBalance/TokenValue when both are set.
type UserUpdate struct {
	DisplayName    *string
	AvatarURL      *string
	FollowerCount  *int64
	Verified       *bool
	EthAddress     *string
	SolAddress     *string
	EthGasSpent    *float64
	SolGasSpent    *float64
	EthBalance     *float64
	SolBalance     *float64
	TokenBalance   *float64
	TokenValue     *float64
	TokenDelta     *float64
	Rating         *float64
	PendingMessage *Message
}

func (u UserUpdate) IsEmpty() bool {
	return u == UserUpdate{}
}

// Apply copies the set fields of the update onto user.
func (u UserUpdate) Apply(user *User) {
	if u.DisplayName != nil {
		user.DisplayName = *u.DisplayName
	}
	if u.AvatarURL != nil {
		user.AvatarURL = *u.AvatarURL
	}
	if u.FollowerCount != nil {
		user.FollowerCount = *u.FollowerCount
	}
	if u.Verified != nil {
		user.Verified = *u.Verified
	}
	if u.EthAddress != nil {
		user.EthAddress = *u.EthAddress
	}
	if u.SolAddress != nil {
		user.SolAddress = *u.SolAddress
	}
	if u.EthGasSpent != nil {
		user.EthGasSpent = *u.EthGasSpent
	}
	if u.SolGasSpent != nil {
		user.SolGasSpent = *u.SolGasSpent
	}
	if u.EthBalance != nil {
		user.EthBalance = *u.EthBalance
	}
	if u.SolBalance != nil {
		user.SolBalance = *u.SolBalance
	}
	if u.TokenDelta != nil {
		user.TokenBalance += *u.TokenDelta
		user.TokenValue += *u.TokenDelta
	} else {
		if u.TokenBalance != nil {
			user.TokenBalance = *u.TokenBalance
		}
		if u.TokenValue != nil {
			user.TokenValue = *u.TokenValue
		}
	}
	if u.Rating != nil {
		user.Rating = *u.Rating
	}
	if u.PendingMessage != nil {
		msg := *u.PendingMessage
		user.PendingMessage = &msg
	}
}

type SocialProfile struct {
	Username      string
	DisplayName   string
	AvatarURL     string
	FollowerCount int64
}

type Post struct {
	ID       string
	Text     string
	Hashtags []string
}

type Location struct {
	Country string
	IP      string
}

// RankedUser is a user annotated for the contract leaderboard. Holding and
// Rating are nil for unverified users.
type RankedUser struct {
	No      int
	User    *User
	Action  Action
	Holding *TokenHolding
	Rating  *float64
}

type Action struct {
	Required bool
	Username string
}

type TokenHolding struct {
	EthBalance float64
	TokenValue float64
}

type DeltaResult struct {
	Username string
	User     *User
	Err      error
}
