package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOpensConversation(t *testing.T) {
	f := newFixture()
	v := f.send(t, adaID, graceID, "Convention de stage", "")

	require.NotNil(t, v.ConversationID)
	assert.Equal(t, v.ID, *v.ConversationID)
	assert.Nil(t, v.ParentMessageID)
	assert.Equal(t, "Ada", v.Sender.FirstName)
	assert.Equal(t, "grace@example.com", v.Recipient.Email)

	stored, err := f.repo.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, *stored.ConversationID)

	channel := realtime.UserChannel(graceID)
	assert.Equal(t, []string{EventNewMessage, EventUnreadCount}, f.notifier.events(channel))
	assert.Equal(t, 1, f.notifier.lastCount(channel))

	require.Len(t, f.notifier.emails, 1)
	email := f.notifier.emails[0]
	assert.Equal(t, "grace@example.com", email.To)
	assert.Equal(t, "Nouveau message sur votre Espace IPSEIS", email.Subject)
	assert.Contains(t, email.Text, "Ada LOVELACE")
	assert.Contains(t, email.Text, "https://ipseis.test/espace-personnel/connexion")
}

func TestReplyJoinsParentConversation(t *testing.T) {
	f := newFixture()
	root := f.send(t, adaID, graceID, "Question", "")
	reply := f.send(t, graceID, adaID, "Re: Question", root.ID)
	again := f.send(t, adaID, graceID, "Re: Re: Question", reply.ID)

	assert.Equal(t, root.ID, *reply.ConversationID)
	assert.Equal(t, root.ID, *again.ConversationID)
	assert.Equal(t, reply.ID, *again.ParentMessageID)
}

func TestSendErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Send(ctx, adaID, SendInput{RecipientID: "0190c6a4-0000-7000-8000-0000000000ff", Subject: "x", Content: "y"})
	assert.ErrorIs(t, err, ErrRecipientNotFound)
	_, err = f.svc.Send(ctx, adaID, SendInput{RecipientID: "grace", Subject: "x", Content: "y"})
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = f.svc.Send(ctx, adaID, SendInput{RecipientID: graceID, Subject: "x", Content: "y", ParentMessageID: "0190c6a4-0000-7000-8000-0000000000ff"})
	assert.ErrorIs(t, err, ErrParentNotFound)

	root := f.send(t, adaID, graceID, "Privé", "")
	_, err = f.svc.Send(ctx, alanID, SendInput{RecipientID: graceID, Subject: "x", Content: "y", ParentMessageID: root.ID})
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Len(t, f.repo.messages, 1)
}

func TestSendWrapsDirectoryFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in := SendInput{RecipientID: graceID, Subject: "x", Content: "y"}

	f.users.fail = map[string]error{adaID: context.DeadlineExceeded}
	_, err := f.svc.Send(ctx, adaID, in)
	assert.Equal(t, apperror.KindTransient, apperror.KindOf(err))

	f.users.fail = map[string]error{graceID: errors.New("directory exploded")}
	_, err = f.svc.Send(ctx, adaID, in)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Empty(t, f.repo.messages)
}

func TestListConversations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.send(t, adaID, graceID, "Premier", "")
	f.now = f.now.Add(time.Minute)
	second := f.send(t, alanID, graceID, "Second", "")
	f.now = f.now.Add(time.Minute)
	f.send(t, graceID, adaID, "Re: Premier", first.ID)
	f.send(t, adaID, graceID, "Re: Re: Premier", first.ID)

	rows, total, err := f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxAll, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)
	// Same timestamp for the two replies: the later insert wins.
	assert.Equal(t, "Re: Re: Premier", rows[0].Subject)
	assert.Equal(t, 3, rows[0].ThreadCount)
	assert.Equal(t, 2, rows[0].UnreadInThread)
	assert.Equal(t, second.ID, rows[1].ID)

	inbox, _, err := f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxInbox})
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, 2, inbox[0].ThreadCount)

	sent, _, err := f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxSent})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "Re: Premier", sent[0].Subject)
	assert.Zero(t, sent[0].UnreadInThread)
}

func TestArchiveHidesConversationForOneUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	root := f.send(t, adaID, graceID, "Archivable", "")

	require.NoError(t, f.svc.Archive(ctx, graceID, root.ID))
	require.NoError(t, f.svc.Archive(ctx, graceID, root.ID))

	rows, _, err := f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxAll})
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, _, err = f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxInbox})
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, _, err = f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxAll, Archived: ArchivedOnly})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, _, err = f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxAll, Archived: ArchivedInclude})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, _, err = f.svc.ListConversations(ctx, adaID, ConversationFilter{Box: BoxAll})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, f.svc.Unarchive(ctx, graceID, root.ID))
	require.NoError(t, f.svc.Unarchive(ctx, graceID, root.ID))
	rows, _, err = f.svc.ListConversations(ctx, graceID, ConversationFilter{Box: BoxAll})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestListConversationsPaginates(t *testing.T) {
	f := newFixture()
	for range PageSize + 3 {
		f.send(t, adaID, graceID, "Sujet", "")
		f.now = f.now.Add(time.Second)
	}
	page1, total, err := f.svc.ListConversations(context.Background(), graceID, ConversationFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, PageSize+3, total)
	assert.Len(t, page1, PageSize)

	page2, _, err := f.svc.ListConversations(context.Background(), graceID, ConversationFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 3)
}

func TestOpenConversationMarksReceivedMessagesRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	root := f.send(t, adaID, graceID, "Bonjour", "")
	f.send(t, graceID, adaID, "Re: Bonjour", root.ID)
	f.send(t, adaID, graceID, "Re: Re: Bonjour", root.ID)
	f.notifier.pushes = nil

	thread, err := f.svc.OpenConversation(ctx, graceID, root.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "Bonjour", thread[0].Subject)
	for _, m := range thread {
		if m.RecipientID == graceID {
			assert.True(t, m.IsRead)
		}
	}
	assert.Equal(t, 0, f.notifier.lastCount(realtime.UserChannel(graceID)))

	n, err := f.svc.UnreadCount(ctx, adaID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.notifier.pushes = nil
	_, err = f.svc.OpenConversation(ctx, graceID, root.ID)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.pushes)

	_, err = f.svc.OpenConversation(ctx, alanID, root.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = f.svc.OpenConversation(ctx, graceID, "nope")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMarkRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	m := f.send(t, adaID, graceID, "Lu ?", "")

	assert.ErrorIs(t, f.svc.MarkRead(ctx, m.ID, adaID), ErrNotRecipient)
	assert.ErrorIs(t, f.svc.MarkRead(ctx, "0190c6a4-0000-7000-8000-0000000000ff", graceID), ErrMessageNotFound)

	require.NoError(t, f.svc.MarkRead(ctx, m.ID, graceID))
	n, err := f.svc.UnreadCount(ctx, graceID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0, f.notifier.lastCount(realtime.UserChannel(graceID)))
}
