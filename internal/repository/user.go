package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airdrop_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type User struct {
	ID                     uuid.UUID      `db:"id"`
	SocialUsername         string         `db:"social_username"`
	ContractAddress        string         `db:"contract_address"`
	DisplayName            string         `db:"display_name"`
	AvatarURL              string         `db:"avatar_url"`
	Verified               bool           `db:"verified"`
	EthAddress             string         `db:"eth_address"`
	SolAddress             string         `db:"sol_address"`
	EthGasSpent            float64        `db:"eth_gas_spent"`
	SolGasSpent            float64        `db:"sol_gas_spent"`
	EthBalance             float64        `db:"eth_balance"`
	SolBalance             float64        `db:"sol_balance"`
	TokenBalance           float64        `db:"token_balance"`
	TokenValue             float64        `db:"token_value"`
	FollowerCount          int64          `db:"follower_count"`
	Rating                 float64        `db:"rating"`
	PendingMessageText     sql.NullString `db:"pending_message_text"`
	PendingMessageHashtags pq.StringArray `db:"pending_message_hashtags"`
	PendingMessageAt       sql.NullTime   `db:"pending_message_at"`
	Location               string         `db:"location"`
	SourceIP               string         `db:"source_ip"`
	CreatedAt              time.Time      `db:"created_at"`
}

var userColumns = []string{
	"id",
	"social_username",
	"contract_address",
	"display_name",
	"avatar_url",
	"verified",
	"eth_address",
	"sol_address",
	"eth_gas_spent",
	"sol_gas_spent",
	"eth_balance",
	"sol_balance",
	"token_balance",
	"token_value",
	"follower_count",
	"rating",
	"pending_message_text",
	"pending_message_hashtags",
	"pending_message_at",
	"location",
	"source_ip",
	"created_at",
}

func (u *User) toModel() *model.User {
	out := &model.User{
		ID:              u.ID.String(),
		SocialUsername:  u.SocialUsername,
		ContractAddress: u.ContractAddress,
		DisplayName:     u.DisplayName,
		AvatarURL:       u.AvatarURL,
		Verified:        u.Verified,
		EthAddress:      u.EthAddress,
		SolAddress:      u.SolAddress,
		EthGasSpent:     u.EthGasSpent,
		SolGasSpent:     u.SolGasSpent,
		EthBalance:      u.EthBalance,
		SolBalance:      u.SolBalance,
		TokenBalance:    u.TokenBalance,
		TokenValue:      u.TokenValue,
		FollowerCount:   u.FollowerCount,
		Rating:          u.Rating,
		Location:        u.Location,
		SourceIP:        u.SourceIP,
		CreatedAt:       u.CreatedAt,
	}
	if u.PendingMessageText.Valid {
		out.PendingMessage = &model.Message{
			Text:      u.PendingMessageText.String,
			Hashtags:  []string(u.PendingMessageHashtags),
			CreatedAt: u.PendingMessageAt.Time,
		}
	}
	return out
}

func filterWhere(filter model.UserFilter) squirrel.Eq {
	where := squirrel.Eq{"contract_address": filter.ContractAddress}
	if filter.SocialUsername != "" {
		where["social_username"] = filter.SocialUsername
	}
	return where
}

// FindOne returns nil, nil when no user matches.
func (r *Repository) FindOne(ctx context.Context, filter model.UserFilter) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(filterWhere(filter)).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user select query: %w", err)
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user.toModel(), nil
}

// InsertOne returns an empty id when the user already exists.
func (r *Repository) InsertOne(ctx context.Context, user *model.User) (string, error) {
	id := uuid.New()

	values := map[string]interface{}{
		"id":               id,
		"social_username":  user.SocialUsername,
		"contract_address": user.ContractAddress,
		"display_name":     user.DisplayName,
		"avatar_url":       user.AvatarURL,
		"verified":         user.Verified,
		"eth_address":      user.EthAddress,
		"sol_address":      user.SolAddress,
		"eth_gas_spent":    user.EthGasSpent,
		"sol_gas_spent":    user.SolGasSpent,
		"eth_balance":      user.EthBalance,
		"sol_balance":      user.SolBalance,
		"token_balance":    user.TokenBalance,
		"token_value":      user.TokenValue,
		"follower_count":   user.FollowerCount,
		"rating":           user.Rating,
		"location":         user.Location,
		"source_ip":        user.SourceIP,
		"created_at":       user.CreatedAt,
	}
	if user.PendingMessage != nil {
		setPendingMessage(values, user.PendingMessage)
	}

	query, args, err := squirrel.
		Insert("users").
		SetMap(values).
		Suffix("ON CONFLICT (contract_address, social_username) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build user insert query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to insert user: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to insert user: %w", err)
	}
	if inserted == 0 {
		return "", nil
	}

	return id.String(), nil
}

// UpdateOne applies the set fields of update to the matching user and
// returns the number of matched rows.
func (r *Repository) UpdateOne(ctx context.Context, filter model.UserFilter, update model.UserUpdate) (int64, error) {
	if update.IsEmpty() {
		return 0, ErrEmptyUpdate
	}
	values := updateValues(update)

	query, args, err := squirrel.
		Update("users").
		SetMap(values).
		Where(filterWhere(filter)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build user update query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}

	return res.RowsAffected()
}

func (r *Repository) Find(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(filterWhere(filter)).
		OrderBy("created_at", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build users select query: %w", err)
	}

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = users[i].toModel()
	}
	return out, nil
}

func updateValues(u model.UserUpdate) map[string]interface{} {
	values := make(map[string]interface{})

	if u.DisplayName != nil {
		values["display_name"] = *u.DisplayName
	}
	if u.AvatarURL != nil {
		values["avatar_url"] = *u.AvatarURL
	}
	if u.FollowerCount != nil {
		values["follower_count"] = *u.FollowerCount
	}
	if u.Verified != nil {
		values["verified"] = *u.Verified
	}
	if u.EthAddress != nil {
		values["eth_address"] = *u.EthAddress
	}
	if u.SolAddress != nil {
		values["sol_address"] = *u.SolAddress
	}
	if u.EthGasSpent != nil {
		values["eth_gas_spent"] = *u.EthGasSpent
	}
	if u.SolGasSpent != nil {
		values["sol_gas_spent"] = *u.SolGasSpent
	}
	if u.EthBalance != nil {
		values["eth_balance"] = *u.EthBalance
	}
	if u.SolBalance != nil {
		values["sol_balance"] = *u.SolBalance
	}
	if u.TokenBalance != nil {
		values["token_balance"] = *u.TokenBalance
	}
	if u.TokenValue != nil {
		values["token_value"] = *u.TokenValue
	}
	if u.TokenDelta != nil {
		values["token_balance"] = squirrel.Expr("token_balance + ?", *u.TokenDelta)
		values["token_value"] = squirrel.Expr("token_value + ?", *u.TokenDelta)
	}
	if u.Rating != nil {
		values["rating"] = *u.Rating
	}
	if u.PendingMessage != nil {
		setPendingMessage(values, u.PendingMessage)
	}

	return values
}

func setPendingMessage(values map[string]interface{}, msg *model.Message) {
	values["pending_message_text"] = msg.Text
	values["pending_message_hashtags"] = pq.StringArray(msg.Hashtags)
	values["pending_message_at"] = msg.CreatedAt
}
