package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessbot/internal/model"
	"confessbot/internal/service"
)

// Main menu reply-keyboard labels. The router matches plain text
// against these, so the labels here and in routeLabel must agree.
const (
	labelSendConfession = "📝 Send Confession"
	labelMyProfile      = "👤 My Profile"
	labelTrending       = "🔥 Trending"
	labelCheckin        = "🎯 Daily Check-in"
	labelHashtags       = "🏷️ Hashtags"
	labelBestCommenters = "🏆 Best Commenters"
	labelBrowseUsers    = "🔍 Browse Users"
	labelRules          = "📌 Rules"
	labelSettings       = "⚙️ Settings"
	labelAbout          = "ℹ️ About Us"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelSendConfession),
			tgbotapi.NewKeyboardButton(labelMyProfile),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelTrending),
			tgbotapi.NewKeyboardButton(labelCheckin),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelHashtags),
			tgbotapi.NewKeyboardButton(labelBestCommenters),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelSettings),
			tgbotapi.NewKeyboardButton(labelAbout),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelBrowseUsers),
			tgbotapi.NewKeyboardButton(labelRules),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func moderationKeyboard(confessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", cbApprove+confessionID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", cbReject+confessionID),
		),
	)
}

func channelKeyboard(botUsername, confessionID string) tgbotapi.InlineKeyboardMarkup {
	url := fmt.Sprintf("https://t.me/%s?start=comments_%s", botUsername, confessionID)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👁️‍🗨️ View/Add Comments", url),
		),
	)
}

func backToMenuRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back to Menu", cbBackToMenu),
	)
}

// threadKeyboard renders the actions under a comment page: add comment,
// follow the author, and pagination when the thread spans pages.
func threadKeyboard(page *model.ThreadPage, authorName string) tgbotapi.InlineKeyboardMarkup {
	followLabel := "👤 Follow Author"
	if authorName != "" && authorName != model.AnonymousName {
		followLabel = "👤 Follow " + authorName
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Add Comment", cbAddComment+page.ConfessionID),
			tgbotapi.NewInlineKeyboardButtonData(followLabel, cbFollowAuthor+page.ConfessionID),
		),
	}
	if page.TotalPages > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page.Page > 1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Previous", pageCallback(page.ConfessionID, page.Page-1)))
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d", page.Page, page.TotalPages), pageCallback(page.ConfessionID, page.Page)))
		if page.Page < page.TotalPages {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", pageCallback(page.ConfessionID, page.Page+1)))
		}
		rows = append(rows, nav)
	}
	rows = append(rows, backToMenuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func pageCallback(confessionID string, page int) string {
	return fmt.Sprintf("%s%s_%d", cbCommentsPage, confessionID, page)
}

func profileKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Set Username", cbSetUsername),
			tgbotapi.NewInlineKeyboardButtonData("📝 Set Bio", cbSetBio),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Followers", cbShowFollowers),
			tgbotapi.NewInlineKeyboardButtonData("👥 Following", cbShowFollowing),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 My Confessions", cbMyConfessions),
			tgbotapi.NewInlineKeyboardButtonData("🔔 Notifications", cbNotificationSettings),
		),
		backToMenuRow(),
	)
}

// notificationKeyboard shows one toggle per preference with its current
// state.
func notificationKeyboard(u *model.User) tgbotapi.InlineKeyboardMarkup {
	toggle := func(label, kind string) tgbotapi.InlineKeyboardButton {
		mark := "🔕"
		if u.NotificationsEnabled(kind) {
			mark = "🔔"
		}
		return tgbotapi.NewInlineKeyboardButtonData(mark+" "+label, cbToggleNotify+kind)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			toggle("New Followers", model.NotifyNewFollower),
			toggle("New Comments", model.NotifyNewComment),
		),
		tgbotapi.NewInlineKeyboardRow(
			toggle("Confession Updates", model.NotifyNewConfession),
		),
		backToMenuRow(),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Review Confessions", cbReviewConfessions),
			tgbotapi.NewInlineKeyboardButtonData("📊 Bot Statistics", cbBotStats),
		),
		backToMenuRow(),
	)
}

// pendingKeyboard renders one approve/reject row per pending confession.
func pendingKeyboard(pending []model.Confession) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pending)+1)
	for _, c := range pending {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Approve #%d", c.Number), cbApprove+c.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ Reject #%d", c.Number), cbReject+c.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Admin Menu", cbAdminMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func browseUsersKeyboard(users []model.User) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(users)+1)
	for _, u := range users {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 View "+u.Username, fmt.Sprintf("%s%d", cbViewProfile, u.TelegramID)),
		))
	}
	rows = append(rows, backToMenuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// viewProfileKeyboard offers follow or unfollow depending on whether
// the viewer already follows the target.
func viewProfileKeyboard(targetID int64, following bool) tgbotapi.InlineKeyboardMarkup {
	var action tgbotapi.InlineKeyboardButton
	if following {
		action = tgbotapi.NewInlineKeyboardButtonData("❌ Unfollow", fmt.Sprintf("%s%d", cbUnfollow, targetID))
	} else {
		action = tgbotapi.NewInlineKeyboardButtonData("➕ Follow", fmt.Sprintf("%s%d", cbFollow, targetID))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(action),
		backToMenuRow(),
	)
}

func trendingKeyboard(confessions []model.Confession) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(confessions)+1)
	for _, c := range confessions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("💬 Comments on #%d (%d)", c.Number, c.TotalComments),
				cbAddComment+c.ID,
			),
		))
	}
	rows = append(rows, backToMenuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func statsText(s *service.Stats) string {
	return fmt.Sprintf(
		"🔐 *Admin Dashboard*\n\n"+
			"Total Users: %d\n"+
			"Total Confessions: %d\n"+
			"Pending Confessions: %d\n"+
			"Approved Confessions: %d\n"+
			"Rejected Confessions: %d\n"+
			"Total Comments: %d",
		s.Users, s.Confessions, s.PendingConfessions, s.ApprovedConfessions, s.RejectedConfessions, s.Comments)
}
