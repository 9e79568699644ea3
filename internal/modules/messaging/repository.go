package messaging

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// Insert stores m and fills the id, sequence and timestamps assigned by
	// the database.
	Insert(ctx context.Context, m *Message) error
	SetConversation(ctx context.Context, id, conversationID string) error
	FindByID(ctx context.Context, id string) (*Message, error)
	FindView(ctx context.Context, id string) (*MessageView, error)

	ListConversations(ctx context.Context, userID string, f ConversationFilter) ([]ConversationSummary, int, error)
	Thread(ctx context.Context, userID, conversationID string) ([]MessageView, error)

	MarkRead(ctx context.Context, id string) error
	// MarkThreadRead marks every unread message of the conversation addressed
	// to userID and returns how many changed.
	MarkThreadRead(ctx context.Context, userID, conversationID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)

	Archive(ctx context.Context, userID, conversationID string, at time.Time) error
	Unarchive(ctx context.Context, userID, conversationID string) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var messageColumns = []string{
	"id", "seq", "sender_id", "recipient_id", "subject", "content", "is_read",
	"parent_message_id", "conversation_id", "created_at", "updated_at",
}

var participantColumns = []string{"id", "first_name", "last_name", "email", "role"}

// viewColumns selects the message under alias plus both participants, named
// so that they scan into MessageView.
func viewColumns(alias string) []string {
	cols := make([]string, 0, len(messageColumns)+2*len(participantColumns))
	for _, c := range messageColumns {
		cols = append(cols, alias+"."+c)
	}
	for _, p := range [][2]string{{"s", "sender"}, {"r", "recipient"}} {
		for _, c := range participantColumns {
			cols = append(cols, fmt.Sprintf(`%s.%s AS "%s.%s"`, p[0], c, p[1], c))
		}
	}
	return cols
}

func (r *repository) Insert(ctx context.Context, m *Message) error {
	query, args, err := r.psql.Insert("internal_messages").
		Columns("sender_id", "recipient_id", "subject", "content", "parent_message_id", "conversation_id").
		Values(m.SenderID, m.RecipientID, m.Subject, m.Content, m.ParentMessageID, m.ConversationID).
		Suffix("RETURNING " + strings.Join(messageColumns, ", ")).
		ToSql()
	if err != nil {
		return err
	}
	return pgxscan.Get(ctx, r.db, m, query, args...)
}

func (r *repository) SetConversation(ctx context.Context, id, conversationID string) error {
	query, args, err := r.psql.Update("internal_messages").
		Set("conversation_id", conversationID).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Message, error) {
	query, args, err := r.psql.Select(messageColumns...).
		From("internal_messages").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var m Message
	if err := pgxscan.Get(ctx, r.db, &m, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) views(alias string) squirrel.SelectBuilder {
	return r.psql.Select(viewColumns(alias)...).
		From("internal_messages " + alias).
		Join("users s ON s.id = " + alias + ".sender_id").
		Join("users r ON r.id = " + alias + ".recipient_id")
}

func (r *repository) FindView(ctx context.Context, id string) (*MessageView, error) {
	query, args, err := r.views("m").Where(squirrel.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var v MessageView
	if err := pgxscan.Get(ctx, r.db, &v, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &v, nil
}

func participantOf(userID string) squirrel.Or {
	return squirrel.Or{squirrel.Eq{"m.sender_id": userID}, squirrel.Eq{"m.recipient_id": userID}}
}

const archivedByUser = "EXISTS (SELECT 1 FROM archived_conversations a WHERE a.user_id = ? AND a.conversation_id = m.conversation_id)"

func conversationWhere(userID string, f ConversationFilter) squirrel.And {
	where := squirrel.And{squirrel.NotEq{"m.conversation_id": nil}}
	switch f.Box {
	case BoxInbox:
		where = append(where, squirrel.Eq{"m.recipient_id": userID})
	case BoxSent:
		where = append(where, squirrel.Eq{"m.sender_id": userID})
	default:
		where = append(where, participantOf(userID))
	}
	switch f.Archived {
	case ArchivedInclude:
	case ArchivedOnly:
		where = append(where, squirrel.Expr(archivedByUser, userID))
	default:
		where = append(where, squirrel.Expr("NOT "+archivedByUser, userID))
	}
	return where
}

// ListConversations returns one page of conversations, each represented by
// its latest message, newest first.
func (r *repository) ListConversations(ctx context.Context, userID string, f ConversationFilter) ([]ConversationSummary, int, error) {
	where := conversationWhere(userID, f)

	countQuery, countArgs, err := r.psql.Select("count(DISTINCT m.conversation_id)").
		From("internal_messages m").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	ranked := r.psql.Select("m.*").
		Column("row_number() OVER (PARTITION BY m.conversation_id ORDER BY m.created_at DESC, m.seq DESC) AS rn").
		Column("count(*) OVER (PARTITION BY m.conversation_id) AS thread_count").
		Column(squirrel.Expr("count(*) FILTER (WHERE m.recipient_id = ? AND NOT m.is_read) OVER (PARTITION BY m.conversation_id) AS unread_in_thread", userID)).
		From("internal_messages m").
		Where(where)

	query, args, err := r.psql.Select(slices.Concat(viewColumns("v"), []string{"v.thread_count", "v.unread_in_thread"})...).
		FromSelect(ranked, "v").
		Join("users s ON s.id = v.sender_id").
		Join("users r ON r.id = v.recipient_id").
		Where(squirrel.Eq{"v.rn": 1}).
		OrderBy("v.created_at DESC", "v.seq DESC").
		Limit(PageSize).
		Offset(f.offset()).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	var rows []ConversationSummary
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Thread returns the messages of a conversation that userID sent or received,
// oldest first.
func (r *repository) Thread(ctx context.Context, userID, conversationID string) ([]MessageView, error) {
	query, args, err := r.views("m").
		Where(squirrel.Eq{"m.conversation_id": conversationID}).
		Where(participantOf(userID)).
		OrderBy("m.created_at", "m.seq").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []MessageView
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, id string) error {
	query, args, err := r.psql.Update("internal_messages").
		Set("is_read", true).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *repository) MarkThreadRead(ctx context.Context, userID, conversationID string) (int64, error) {
	query, args, err := r.psql.Update("internal_messages").
		Set("is_read", true).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"conversation_id": conversationID, "recipient_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *repository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query, args, err := r.psql.Select("count(*)").
		From("internal_messages").
		Where(squirrel.Eq{"recipient_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repository) Archive(ctx context.Context, userID, conversationID string, at time.Time) error {
	query, args, err := r.psql.Insert("archived_conversations").
		Columns("user_id", "conversation_id", "archived_at").
		Values(userID, conversationID, at).
		Suffix("ON CONFLICT (user_id, conversation_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) Unarchive(ctx context.Context, userID, conversationID string) error {
	query, args, err := r.psql.Delete("archived_conversations").
		Where(squirrel.Eq{"user_id": userID, "conversation_id": conversationID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
