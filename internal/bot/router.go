package bot

import (
	"context"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessbot/internal/model"
	"confessbot/internal/repository"
	"confessbot/internal/service"
)

// Callback data identifiers. Dynamic callbacks append an id to a
// prefix; everything else is matched exactly.
const (
	cbApprove      = "approve_"
	cbReject       = "reject_"
	cbAddComment   = "add_comment_"
	cbCommentsPage = "comments_page_"
	cbViewProfile  = "view_profile_"
	cbFollowAuthor = "follow_author_"
	cbFollow       = "follow_"
	cbUnfollow     = "unfollow_"
	cbToggleNotify = "toggle_notify_"

	cbSendConfession       = "send_confession"
	cbDailyCheckin         = "daily_checkin"
	cbBackToMenu           = "back_to_menu"
	cbSetUsername          = "set_username"
	cbSetBio               = "set_bio"
	cbShowFollowers        = "show_followers"
	cbShowFollowing        = "show_following"
	cbMyConfessions        = "my_confessions"
	cbBrowseUsers          = "browse_users"
	cbNotificationSettings = "notification_settings"
	cbAdminMenu            = "admin_menu"
	cbReviewConfessions    = "review_confessions"
	cbBotStats             = "bot_stats"
)

// Router classifies inbound Telegram updates and dispatches them.
// Classification order for a text message: armed conversation state,
// slash command, menu label, then fall through to the main menu.
type Router struct {
	sender      Sender
	profiles    *service.ProfileService
	confessions *service.ConfessionService
	comments    *service.CommentService
	social      *service.SocialService
	discovery   *service.DiscoveryService
	states      *repository.StateRepository
}

func NewRouter(
	sender Sender,
	profiles *service.ProfileService,
	confessions *service.ConfessionService,
	comments *service.CommentService,
	social *service.SocialService,
	discovery *service.DiscoveryService,
	states *repository.StateRepository,
) *Router {
	return &Router{
		sender:      sender,
		profiles:    profiles,
		confessions: confessions,
		comments:    comments,
		social:      social,
		discovery:   discovery,
		states:      states,
	}
}

// HandleUpdate dispatches one update. It never panics outward: a
// handler failure degrades to a logged error plus a generic failure
// message, so the webhook can always acknowledge the update.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Router] Recovered from panic: %v", rec)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := msg.Text

	if _, err := r.profiles.GetOrCreate(ctx, userID, msg.From.FirstName); err != nil {
		log.Printf("[Router] User bootstrap failed user=%d err=%v", userID, err)
		r.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return
	}

	state, err := r.states.Get(ctx, userID)
	if err != nil {
		log.Printf("[Router] State lookup failed user=%d err=%v", userID, err)
	}
	if state != nil {
		r.dispatchState(ctx, chatID, userID, state, text)
		return
	}

	if strings.HasPrefix(text, "/") {
		r.dispatchCommand(ctx, chatID, userID, text)
		return
	}

	r.dispatchLabel(ctx, chatID, userID, text)
}

// dispatchState completes the flow the user is mid-way through. Format
// failures on username and bio re-prompt without clearing so the next
// message retries; everything else clears the state after dispatch.
func (r *Router) dispatchState(ctx context.Context, chatID, userID int64, state *model.UserState, text string) {
	switch state.State {
	case model.StateAwaitingUsername:
		err := r.profiles.SetUsername(ctx, userID, text)
		switch {
		case err == nil:
			r.clearState(ctx, userID)
			r.reply(ctx, chatID, "✅ Display name updated to "+strings.TrimSpace(text)+"!")
			r.showMainMenu(ctx, chatID, userID)
		default:
			r.reply(ctx, chatID, userMessage(err))
		}

	case model.StateAwaitingBio:
		if err := r.profiles.SetBio(ctx, userID, text); err != nil {
			r.reply(ctx, chatID, userMessage(err))
			return
		}
		r.clearState(ctx, userID)
		r.reply(ctx, chatID, "✅ Bio updated successfully!")

	case model.StateAwaitingConfession:
		r.clearState(ctx, userID)
		c, err := r.confessions.Submit(ctx, userID, text)
		if err != nil {
			r.reply(ctx, chatID, userMessage(err))
			return
		}
		r.reply(ctx, chatID,
			"✅ *Confession #"+strconv.FormatInt(c.Number, 10)+" submitted!*\n\n"+
				"It is now waiting for admin approval. You will be notified once it is reviewed.")

	case model.StateAwaitingComment:
		r.clearState(ctx, userID)
		if _, err := r.comments.Add(ctx, state.ConfessionID, userID, text); err != nil {
			r.reply(ctx, chatID, userMessage(err))
			return
		}
		r.reply(ctx, chatID, "✅ Comment added successfully!")
		r.showThread(ctx, chatID, state.ConfessionID, 1)

	case model.StateAwaitingRejectionReason:
		r.clearState(ctx, userID)
		if _, err := r.confessions.Reject(ctx, userID, state.ConfessionID, text); err != nil {
			r.reply(ctx, chatID, userMessage(err))
			return
		}
		r.reply(ctx, chatID, "✅ Confession rejected.")

	default:
		r.clearState(ctx, userID)
		r.showMainMenu(ctx, chatID, userID)
	}
}

// dispatchCommand parses "/cmd@BotName args" from the raw text rather
// than relying on message entities, which not every client sets.
func (r *Router) dispatchCommand(ctx context.Context, chatID, userID int64, text string) {
	parts := strings.Fields(text)
	cmd := strings.TrimPrefix(parts[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	args := strings.Join(parts[1:], " ")

	switch cmd {
	case "start":
		r.handleStart(ctx, chatID, userID, args)
	case "help":
		r.showHelp(ctx, chatID, userID)
	case "checkin":
		r.handleCheckin(ctx, chatID, userID)
	case "admin":
		r.showAdminDashboard(ctx, chatID, userID)
	default:
		r.showMainMenu(ctx, chatID, userID)
	}
}

func (r *Router) dispatchLabel(ctx context.Context, chatID, userID int64, text string) {
	switch text {
	case labelSendConfession:
		r.promptConfession(ctx, chatID, userID)
	case labelMyProfile:
		r.showProfile(ctx, chatID, userID)
	case labelTrending:
		r.showTrending(ctx, chatID)
	case labelCheckin:
		r.handleCheckin(ctx, chatID, userID)
	case labelHashtags:
		r.showHashtags(ctx, chatID)
	case labelBestCommenters:
		r.showBestCommenters(ctx, chatID)
	case labelBrowseUsers:
		r.showBrowseUsers(ctx, chatID, userID)
	case labelRules:
		r.showRules(ctx, chatID)
	case labelSettings:
		r.showSettings(ctx, chatID, userID)
	case labelAbout:
		r.showAbout(ctx, chatID)
	default:
		// Unrecognized text with no armed state resets to home.
		r.showMainMenu(ctx, chatID, userID)
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	data := cb.Data

	// The press is acknowledged regardless of handler outcome so the
	// client never hangs on a spinner.
	defer func() {
		if err := r.sender.AnswerCallback(ctx, cb.ID, ""); err != nil {
			log.Printf("[Router] Callback ack failed id=%s err=%v", cb.ID, err)
		}
	}()

	if _, err := r.profiles.GetOrCreate(ctx, userID, cb.From.FirstName); err != nil {
		log.Printf("[Router] User bootstrap failed user=%d err=%v", userID, err)
		r.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return
	}

	// Prefix matches. unfollow_ and follow_author_ are checked before
	// follow_ because follow_ is a prefix of both.
	switch {
	case strings.HasPrefix(data, cbApprove):
		r.handleApprove(ctx, chatID, userID, strings.TrimPrefix(data, cbApprove))
		return
	case strings.HasPrefix(data, cbReject):
		r.handleRejectRequest(ctx, chatID, userID, strings.TrimPrefix(data, cbReject))
		return
	case strings.HasPrefix(data, cbAddComment):
		r.promptComment(ctx, chatID, userID, strings.TrimPrefix(data, cbAddComment))
		return
	case strings.HasPrefix(data, cbCommentsPage):
		id, page := parsePageCallback(strings.TrimPrefix(data, cbCommentsPage))
		r.showThread(ctx, chatID, id, page)
		return
	case strings.HasPrefix(data, cbViewProfile):
		if targetID, err := strconv.ParseInt(strings.TrimPrefix(data, cbViewProfile), 10, 64); err == nil {
			r.showUserProfile(ctx, chatID, userID, targetID)
		}
		return
	case strings.HasPrefix(data, cbToggleNotify):
		r.handleToggleNotify(ctx, chatID, userID, strings.TrimPrefix(data, cbToggleNotify))
		return
	case strings.HasPrefix(data, cbFollowAuthor):
		r.handleFollowAuthor(ctx, chatID, userID, strings.TrimPrefix(data, cbFollowAuthor))
		return
	case strings.HasPrefix(data, cbUnfollow):
		if targetID, err := strconv.ParseInt(strings.TrimPrefix(data, cbUnfollow), 10, 64); err == nil {
			r.handleUnfollow(ctx, chatID, userID, targetID)
		}
		return
	case strings.HasPrefix(data, cbFollow):
		if targetID, err := strconv.ParseInt(strings.TrimPrefix(data, cbFollow), 10, 64); err == nil {
			r.handleFollow(ctx, chatID, userID, targetID)
		}
		return
	}

	switch data {
	case cbSendConfession:
		r.promptConfession(ctx, chatID, userID)
	case cbDailyCheckin:
		r.handleCheckin(ctx, chatID, userID)
	case cbBackToMenu:
		r.showMainMenu(ctx, chatID, userID)
	case cbSetUsername:
		r.promptUsername(ctx, chatID, userID)
	case cbSetBio:
		r.promptBio(ctx, chatID, userID)
	case cbShowFollowers:
		r.showFollowList(ctx, chatID, userID, true)
	case cbShowFollowing:
		r.showFollowList(ctx, chatID, userID, false)
	case cbMyConfessions:
		r.showMyConfessions(ctx, chatID, userID)
	case cbBrowseUsers:
		r.showBrowseUsers(ctx, chatID, userID)
	case cbNotificationSettings:
		r.showNotificationSettings(ctx, chatID, userID)
	case cbAdminMenu:
		r.showAdminDashboard(ctx, chatID, userID)
	case cbReviewConfessions:
		r.showPendingConfessions(ctx, chatID, userID)
	case cbBotStats:
		r.showBotStats(ctx, chatID, userID)
	default:
		r.showMainMenu(ctx, chatID, userID)
	}
}

// parsePageCallback splits "<confessionID>_<page>". Confession ids
// contain underscores, so the page is taken from the last segment.
func parsePageCallback(rest string) (string, int) {
	idx := strings.LastIndex(rest, "_")
	if idx < 0 {
		return rest, 1
	}
	page, err := strconv.Atoi(rest[idx+1:])
	if err != nil || page < 1 {
		return rest[:idx], 1
	}
	return rest[:idx], page
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.sender.SendText(ctx, chatID, text); err != nil {
		log.Printf("[Router] Send failed chat=%d err=%v", chatID, err)
	}
}

func (r *Router) replyMarkup(ctx context.Context, chatID int64, text string, markup interface{}) {
	if err := r.sender.SendWithMarkup(ctx, chatID, text, markup); err != nil {
		log.Printf("[Router] Send failed chat=%d err=%v", chatID, err)
	}
}

func (r *Router) setState(ctx context.Context, userID int64, st model.UserState) bool {
	if err := r.states.Set(ctx, userID, st); err != nil {
		log.Printf("[Router] State set failed user=%d err=%v", userID, err)
		return false
	}
	return true
}

func (r *Router) clearState(ctx context.Context, userID int64) {
	if err := r.states.Clear(ctx, userID); err != nil {
		log.Printf("[Router] State clear failed user=%d err=%v", userID, err)
	}
}
