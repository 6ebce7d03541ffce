// Package postgres stores chat state in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

var _ chat.Store = (*Postgres)(nil)

// Connect connects to the database and ping the DB to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// Close closes the database connection pool.
func (pg *Postgres) Close() error {
	return pg.bun.Close()
}

// Ping checks that the database is reachable.
func (pg *Postgres) Ping(ctx context.Context) error {
	return pg.bun.PingContext(ctx)
}

// CreateSchema creates the tables and indexes when they do not exist.
func (pg *Postgres) CreateSchema(ctx context.Context) error {
	if _, err := pg.bun.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}

	models := []any{
		(*user)(nil),
		(*conversation)(nil),
		(*message)(nil),
		(*reaction)(nil),
		(*presence)(nil),
		(*typingState)(nil),
		(*readReceipt)(nil),
	}
	for _, m := range models {
		if _, err := pg.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []*bun.CreateIndexQuery{
		pg.bun.NewCreateIndex().Model((*conversation)(nil)).
			Index("conversations_participant_ids_idx").Using("GIN").Column("participant_ids"),
		pg.bun.NewCreateIndex().Model((*message)(nil)).
			Index("messages_conversation_time_idx").Column("conversation_id", "created_at", "seq"),
		pg.bun.NewCreateIndex().Model((*reaction)(nil)).Unique().
			Index("reactions_message_user_emoji_idx").Column("message_id", "user_id", "emoji"),
		pg.bun.NewCreateIndex().Model((*presence)(nil)).
			Index("presence_last_seen_idx").Column("last_seen"),
	}
	for _, q := range indexes {
		if _, err := q.IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// translate maps driver errors onto chat errors. Malformed ids cannot name
// an existing row, so they read as not found.
func translate(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, chat.ErrNotFound)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "22P02" {
		return fmt.Errorf("%s %s: %w", kind, id, chat.ErrNotFound)
	}
	return err
}

// UpsertUser inserts the user or patches its profile fields.
func (pg *Postgres) UpsertUser(ctx context.Context, u chat.User) (chat.User, error) {
	um := &user{
		ExternalID: u.ExternalID,
		Name:       u.Name,
		Email:      u.Email,
		ImageURL:   u.ImageURL,
		CreatedAt:  u.CreatedAt,
	}
	_, err := pg.bun.NewInsert().
		Model(um).
		On("CONFLICT (external_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("image_url = EXCLUDED.image_url").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return chat.User{}, fmt.Errorf("upsert: %w", err)
	}
	return um.ChatUser(), nil
}

// GetUser returns the user with the given external id.
func (pg *Postgres) GetUser(ctx context.Context, externalID string) (chat.User, error) {
	var um user
	err := pg.bun.NewSelect().Model(&um).Where("external_id = ?", externalID).Scan(ctx)
	if err != nil {
		return chat.User{}, translate(err, "user", externalID)
	}
	return um.ChatUser(), nil
}

// GetUsers returns the users that exist among externalIDs.
func (pg *Postgres) GetUsers(ctx context.Context, externalIDs []string) ([]chat.User, error) {
	var ums []user
	err := pg.bun.NewSelect().Model(&ums).Where("external_id IN (?)", bun.In(externalIDs)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return usersOut(ums), nil
}

// ListUsers returns every user.
func (pg *Postgres) ListUsers(ctx context.Context) ([]chat.User, error) {
	var ums []user
	if err := pg.bun.NewSelect().Model(&ums).Order("external_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return usersOut(ums), nil
}

func usersOut(ums []user) []chat.User {
	out := make([]chat.User, len(ums))
	for i, u := range ums {
		out[i] = u.ChatUser()
	}
	return out
}

func conversationModel(c chat.Conversation) *conversation {
	cm := &conversation{
		Kind:               string(c.Kind),
		ParticipantIDs:     c.ParticipantIDs,
		GroupName:          c.GroupName,
		DirectKey:          c.DirectKey,
		LastMessagePreview: c.LastMessagePreview,
		CreatedAt:          c.CreatedAt,
	}
	if c.LastMessageTime != nil {
		cm.LastMessageTime = *c.LastMessageTime
	}
	return cm
}

// InsertConversation inserts a conversation. The returned conversation
// holds the generated id.
func (pg *Postgres) InsertConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error) {
	cm := conversationModel(c)
	if _, err := pg.bun.NewInsert().Model(cm).Returning("*").Exec(ctx); err != nil {
		return chat.Conversation{}, fmt.Errorf("insert: %w", err)
	}
	return cm.ChatConversation(), nil
}

// InsertDirectIfAbsent relies on the unique direct_key constraint: the
// insert is skipped on conflict and the surviving row is read back.
func (pg *Postgres) InsertDirectIfAbsent(ctx context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	if c.DirectKey == "" {
		return chat.Conversation{}, false, fmt.Errorf("direct key is empty: %w", chat.ErrInvalidArgument)
	}
	cm := conversationModel(c)
	res, err := pg.bun.NewInsert().
		Model(cm).
		On("CONFLICT (direct_key) DO NOTHING").
		Returning("*").
		Exec(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Conflict: nothing was returned.
	case err != nil:
		return chat.Conversation{}, false, fmt.Errorf("insert: %w", err)
	default:
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			return cm.ChatConversation(), true, nil
		}
	}

	var existing conversation
	err = pg.bun.NewSelect().Model(&existing).Where("direct_key = ?", c.DirectKey).Scan(ctx)
	if err != nil {
		return chat.Conversation{}, false, fmt.Errorf("select existing: %w", err)
	}
	return existing.ChatConversation(), false, nil
}

// GetConversation returns the conversation with the given id.
func (pg *Postgres) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	var cm conversation
	if err := pg.bun.NewSelect().Model(&cm).Where("id = ?", id).Scan(ctx); err != nil {
		return chat.Conversation{}, translate(err, "conversation", id)
	}
	return cm.ChatConversation(), nil
}

// ListConversationsForUser returns the conversations userID takes part in.
func (pg *Postgres) ListConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var cms []conversation
	err := pg.bun.NewSelect().
		Model(&cms).
		Where("participant_ids @> ARRAY[?]::text[]", userID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]chat.Conversation, len(cms))
	for i, c := range cms {
		out[i] = c.ChatConversation()
	}
	return out, nil
}

// AppendMessage inserts a message and updates its conversation in one
// transaction. Updating the conversation first locks its row, so
// concurrent sends to one conversation commit one after another. The
// recency metadata never moves back to an older message.
func (pg *Postgres) AppendMessage(ctx context.Context, m chat.Message, preview string) (chat.Message, error) {
	mm := &message{
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*conversation)(nil)).
			Set("last_message_preview = CASE WHEN last_message_time IS NULL OR last_message_time <= ? THEN ? ELSE last_message_preview END", m.CreatedAt, preview).
			Set("last_message_time = GREATEST(COALESCE(last_message_time, ?), ?)", m.CreatedAt, m.CreatedAt).
			Where("id = ?", m.ConversationID).
			Exec(ctx)
		if err != nil {
			return translate(err, "conversation", m.ConversationID)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("conversation %s: %w", m.ConversationID, chat.ErrNotFound)
		}

		if _, err := tx.NewInsert().Model(mm).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	return mm.ChatMessage(), nil
}

// GetMessage returns the message with the given id.
func (pg *Postgres) GetMessage(ctx context.Context, id string) (chat.Message, error) {
	var mm message
	if err := pg.bun.NewSelect().Model(&mm).Where("id = ?", id).Scan(ctx); err != nil {
		return chat.Message{}, translate(err, "message", id)
	}
	return mm.ChatMessage(), nil
}

// ListMessages returns the messages of a conversation, oldest first.
func (pg *Postgres) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var mms []message
	err := pg.bun.NewSelect().
		Model(&mms).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC", "seq ASC").
		Scan(ctx)
	if err != nil {
		if err := translate(err, "conversation", conversationID); errors.Is(err, chat.ErrNotFound) {
			return []chat.Message{}, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]chat.Message, len(mms))
	for i, m := range mms {
		out[i] = m.ChatMessage()
	}
	return out, nil
}

// MarkMessageDeleted flags a message deleted and replaces its content.
func (pg *Postgres) MarkMessageDeleted(ctx context.Context, id, placeholder string) (chat.Message, error) {
	var mm message
	_, err := pg.bun.NewUpdate().
		Model(&mm).
		Set("deleted = TRUE").
		Set("content = ?", placeholder).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return chat.Message{}, translate(err, "message", id)
	}
	if mm.ID == "" {
		return chat.Message{}, fmt.Errorf("message %s: %w", id, chat.ErrNotFound)
	}
	return mm.ChatMessage(), nil
}

// CountUnread counts messages of others created after the given time.
func (pg *Postgres) CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int, error) {
	n, err := pg.bun.NewSelect().
		Model((*message)(nil)).
		Where("conversation_id = ?", conversationID).
		Where("sender_id <> ?", userID).
		Where("created_at > ?", after).
		Count(ctx)
	if err != nil {
		if err := translate(err, "conversation", conversationID); errors.Is(err, chat.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// ToggleReaction deletes the triple when present and inserts it otherwise,
// inside one transaction.
func (pg *Postgres) ToggleReaction(ctx context.Context, r chat.Reaction) (bool, error) {
	added := false
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*reaction)(nil)).
			Where("message_id = ?", r.MessageID).
			Where("user_id = ?", r.UserID).
			Where("emoji = ?", r.Emoji).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n > 0 {
			return nil
		}

		_, err = tx.NewInsert().
			Model(&reaction{
				MessageID: r.MessageID,
				UserID:    r.UserID,
				Emoji:     r.Emoji,
				CreatedAt: r.CreatedAt,
			}).
			On("CONFLICT (message_id, user_id, emoji) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// ListReactions returns the reactions on the given messages, oldest first.
func (pg *Postgres) ListReactions(ctx context.Context, messageIDs []string) ([]chat.Reaction, error) {
	var rms []reaction
	err := pg.bun.NewSelect().
		Model(&rms).
		Where("message_id IN (?)", bun.In(messageIDs)).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]chat.Reaction, len(rms))
	for i, r := range rms {
		out[i] = r.ChatReaction()
	}
	return out, nil
}

// UpsertPresence stores a heartbeat, replacing any earlier one of the user.
func (pg *Postgres) UpsertPresence(ctx context.Context, p chat.Presence) error {
	_, err := pg.bun.NewInsert().
		Model(&presence{UserID: p.UserID, Online: p.Online, LastSeen: p.LastSeen}).
		On("CONFLICT (user_id) DO UPDATE").
		Set("online = EXCLUDED.online").
		Set("last_seen = EXCLUDED.last_seen").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// GetPresences returns the heartbeats that exist among userIDs.
func (pg *Postgres) GetPresences(ctx context.Context, userIDs []string) ([]chat.Presence, error) {
	var pms []presence
	if err := pg.bun.NewSelect().Model(&pms).Where("user_id IN (?)", bun.In(userIDs)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return presencesOut(pms), nil
}

// ListPresences returns the heartbeats newer than since.
func (pg *Postgres) ListPresences(ctx context.Context, since time.Time) ([]chat.Presence, error) {
	var pms []presence
	err := pg.bun.NewSelect().
		Model(&pms).
		Where("last_seen > ?", since).
		Order("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return presencesOut(pms), nil
}

func presencesOut(pms []presence) []chat.Presence {
	out := make([]chat.Presence, len(pms))
	for i, p := range pms {
		out[i] = p.ChatPresence()
	}
	return out
}

// UpsertTyping inserts a typing record or refreshes its time. The name
// snapshot of an existing record is kept.
func (pg *Postgres) UpsertTyping(ctx context.Context, t chat.TypingState) error {
	_, err := pg.bun.NewInsert().
		Model(&typingState{
			ConversationID: t.ConversationID,
			UserID:         t.UserID,
			UserName:       t.UserName,
			UpdatedAt:      t.UpdatedAt,
		}).
		On("CONFLICT (conversation_id, user_id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// DeleteTyping removes the typing record of a user, if any.
func (pg *Postgres) DeleteTyping(ctx context.Context, conversationID, userID string) error {
	_, err := pg.bun.NewDelete().
		Model((*typingState)(nil)).
		Where("conversation_id = ?", conversationID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// ListTyping returns the typing records of a conversation.
func (pg *Postgres) ListTyping(ctx context.Context, conversationID string) ([]chat.TypingState, error) {
	var tms []typingState
	err := pg.bun.NewSelect().
		Model(&tms).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]chat.TypingState, len(tms))
	for i, t := range tms {
		out[i] = t.ChatTypingState()
	}
	return out, nil
}

// UpsertReceipt stores a read watermark, replacing any earlier one.
func (pg *Postgres) UpsertReceipt(ctx context.Context, r chat.ReadReceipt) error {
	_, err := pg.bun.NewInsert().
		Model(&readReceipt{
			ConversationID: r.ConversationID,
			UserID:         r.UserID,
			LastReadTime:   r.LastReadTime,
		}).
		On("CONFLICT (conversation_id, user_id) DO UPDATE").
		Set("last_read_time = EXCLUDED.last_read_time").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// GetReceipt returns the watermark of userID in a conversation.
func (pg *Postgres) GetReceipt(ctx context.Context, conversationID, userID string) (chat.ReadReceipt, error) {
	var rm readReceipt
	err := pg.bun.NewSelect().
		Model(&rm).
		Where("conversation_id = ?", conversationID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return chat.ReadReceipt{}, translate(err, "receipt", conversationID+"/"+userID)
	}
	return chat.ReadReceipt{
		ConversationID: rm.ConversationID,
		UserID:         rm.UserID,
		LastReadTime:   rm.LastReadTime,
	}, nil
}
