package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"confessbot/internal/level"
	"confessbot/internal/model"
)

func (r *Router) handleStart(ctx context.Context, chatID, userID int64, args string) {
	// Channel posts deep-link back into the bot with the confession id.
	if strings.HasPrefix(args, "comments_") {
		r.showThread(ctx, chatID, strings.TrimPrefix(args, "comments_"), 1)
		return
	}

	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if !user.IsActive {
		r.reply(ctx, chatID, "❌ Your account has been blocked by admin.")
		return
	}

	if !user.HasUsername() {
		r.reply(ctx, chatID,
			"🤫 *Welcome to the Confession Bot!*\n\n"+
				"First, please set your display name:\n\n"+
				"Enter your desired name (3-20 characters, letters/numbers/underscores only):")
		r.setState(ctx, userID, model.UserState{State: model.StateAwaitingUsername, ChatID: chatID})
		return
	}

	r.reply(ctx, chatID,
		"🤫 *Welcome back, "+user.Username+"!*\n\n"+
			"Send me your confession and it will be submitted anonymously for admin approval.\n\n"+
			"Your identity will never be revealed!")
	r.showMainMenu(ctx, chatID, userID)
}

func (r *Router) showMainMenu(ctx context.Context, chatID, userID int64) {
	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	commentCount := r.discovery.CommentCount(ctx, userID)
	lvl := level.ForCommentCount(commentCount)

	name := user.Username
	if !user.HasUsername() {
		name = "Not set"
	}
	text := fmt.Sprintf(
		"🤫 *Confession Bot*\n\n"+
			"👤 Profile: %s\n"+
			"⭐ Reputation: %d\n"+
			"🔥 Streak: %d days\n"+
			"🏆 Level: %s %s (%d comments)\n\n"+
			"Choose an option below:",
		name, user.Reputation, user.DailyStreak, lvl.Symbol, lvl.Name, commentCount)
	r.replyMarkup(ctx, chatID, text, mainMenuKeyboard())
}

func (r *Router) showHelp(ctx context.Context, chatID, userID int64) {
	text := "ℹ️ *Confession Bot Help*\n\n" +
		"*How to Confess:*\n" +
		"1. Click \"" + labelSendConfession + "\"\n" +
		"2. Type your confession\n" +
		"3. Wait for admin approval\n" +
		"4. See it posted in the channel\n\n" +
		"*Features:*\n" +
		"• Anonymous confessions\n" +
		"• User profiles with display names\n" +
		"• Follow and unfollow other users\n" +
		"• Comments with levels\n" +
		"• Daily check-in streaks\n\n" +
		"*Commands:*\n" +
		"/start - Start the bot\n" +
		"/checkin - Daily check-in\n" +
		"/help - Show this help"
	if r.profiles.IsAdmin(userID) {
		text += "\n/admin - Admin dashboard"
	}
	r.reply(ctx, chatID, text)
}

func (r *Router) handleCheckin(ctx context.Context, chatID, userID int64) {
	streak, err := r.profiles.CheckIn(ctx, userID)
	if errors.Is(err, model.ErrAlreadyCheckedIn) {
		r.reply(ctx, chatID, fmt.Sprintf("✅ You already checked in today!\n\nCurrent streak: %d days", streak))
		return
	}
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.reply(ctx, chatID, fmt.Sprintf("🎉 Daily Check-in!\n\n✅ +%d reputation points\nCurrent streak: %d days",
		model.ReputationCheckinBonus, streak))
}

func (r *Router) promptConfession(ctx context.Context, chatID, userID int64) {
	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if !user.IsActive {
		r.reply(ctx, chatID, "❌ Your account has been blocked by admin.")
		return
	}
	if !r.setState(ctx, userID, model.UserState{State: model.StateAwaitingConfession, ChatID: chatID}) {
		r.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return
	}
	r.reply(ctx, chatID,
		"✍️ *Send Your Confession*\n\n"+
			"Type your confession below (max 1000 characters):\n\n"+
			"You can add hashtags like #love #study #funny")
}

func (r *Router) promptUsername(ctx context.Context, chatID, userID int64) {
	if !r.setState(ctx, userID, model.UserState{State: model.StateAwaitingUsername, ChatID: chatID}) {
		r.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return
	}
	r.reply(ctx, chatID, "📝 Enter your desired display name (3-20 characters, letters/numbers/underscores only):")
}

func (r *Router) promptBio(ctx context.Context, chatID, userID int64) {
	if !r.setState(ctx, userID, model.UserState{State: model.StateAwaitingBio, ChatID: chatID}) {
		r.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return
	}
	r.reply(ctx, chatID, "📝 Enter your bio (max 100 characters):")
}

func (r *Router) promptComment(ctx context.Context, chatID, userID int64, confessionID string) {
	if _, err := r.confessions.Get(ctx, confessionID); err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if !r.setState(ctx, userID, model.UserState{
		State:        model.StateAwaitingComment,
		ConfessionID: confessionID,
		ChatID:       chatID,
	}) {
		r.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return
	}
	r.reply(ctx, chatID, "💬 Type your comment (minimum 3 characters):")
}

func (r *Router) showProfile(ctx context.Context, chatID, userID int64) {
	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	commentCount := r.discovery.CommentCount(ctx, userID)
	lvl := level.ForCommentCount(commentCount)

	bio := "No bio set"
	if user.Bio != nil && *user.Bio != "" {
		bio = *user.Bio
	}
	name := user.Username
	if !user.HasUsername() {
		name = "Not set"
	}
	text := fmt.Sprintf(
		"👤 *My Profile*\n\n"+
			"Name: %s\n"+
			"Bio: %s\n"+
			"⭐ Reputation: %d\n"+
			"📝 Confessions: %d\n"+
			"💬 Comments: %d\n"+
			"🏆 Level: %s %s\n"+
			"🔥 Streak: %d days\n"+
			"👥 Followers: %d | Following: %d",
		name, bio, user.Reputation, user.TotalConfessions, commentCount,
		lvl.Symbol, lvl.Name, user.DailyStreak, len(user.Followers), len(user.Following))
	r.replyMarkup(ctx, chatID, text, profileKeyboard())
}

func (r *Router) showUserProfile(ctx context.Context, chatID, viewerID, targetID int64) {
	target, err := r.profiles.Get(ctx, targetID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	viewer, err := r.profiles.Get(ctx, viewerID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	commentCount := r.discovery.CommentCount(ctx, targetID)
	lvl := level.ForCommentCount(commentCount)

	bio := "No bio"
	if target.Bio != nil && *target.Bio != "" {
		bio = *target.Bio
	}
	text := fmt.Sprintf(
		"👤 *%s*\n\n"+
			"%s\n\n"+
			"⭐ Reputation: %d\n"+
			"🏆 Level: %s %s (%d comments)\n"+
			"👥 Followers: %d",
		target.Username, bio, target.Reputation, lvl.Symbol, lvl.Name, commentCount, len(target.Followers))
	r.replyMarkup(ctx, chatID, text, viewProfileKeyboard(targetID, viewer.IsFollowing(targetID)))
}

func (r *Router) showTrending(ctx context.Context, chatID int64) {
	trending, err := r.discovery.Trending(ctx)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(trending) == 0 {
		r.reply(ctx, chatID, "🔥 *Trending Confessions*\n\nNo trending confessions yet. Be the first to submit one!")
		return
	}
	var b strings.Builder
	b.WriteString("🔥 *Trending Confessions*\n\n")
	for _, c := range trending {
		fmt.Fprintf(&b, "#%d (%d 💬)\n%s\n\n", c.Number, c.TotalComments, snippet(c.Text, 100))
	}
	r.replyMarkup(ctx, chatID, b.String(), trendingKeyboard(trending))
}

func (r *Router) showHashtags(ctx context.Context, chatID int64) {
	tags, err := r.discovery.PopularHashtags(ctx)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(tags) == 0 {
		r.reply(ctx, chatID, "🏷️ *Popular Hashtags*\n\nNo hashtags yet. Add some to your next confession!")
		return
	}
	var b strings.Builder
	b.WriteString("🏷️ *Popular Hashtags*\n\n")
	for i, t := range tags {
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, t.Tag, t.Count)
	}
	r.reply(ctx, chatID, b.String())
}

func (r *Router) showBestCommenters(ctx context.Context, chatID int64) {
	ranks, err := r.discovery.BestCommenters(ctx)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(ranks) == 0 {
		r.reply(ctx, chatID, "🏆 *Best Commenters*\n\nNo comments yet. Be the first to comment!")
		return
	}
	var b strings.Builder
	b.WriteString("🏆 *Best Commenters*\n\n")
	for i, rk := range ranks {
		fmt.Fprintf(&b, "%d. %s %s - %d comments\n", i+1, rk.Level.Symbol, rk.Username, rk.Count)
	}
	r.reply(ctx, chatID, b.String())
}

func (r *Router) showBrowseUsers(ctx context.Context, chatID, userID int64) {
	users, err := r.discovery.BrowseUsers(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(users) == 0 {
		r.reply(ctx, chatID, "🔍 *Browse Users*\n\nNo users found.")
		return
	}
	var b strings.Builder
	b.WriteString("🔍 *Browse Users*\n\n")
	for _, u := range users {
		bio := "No bio"
		if u.Bio != nil && *u.Bio != "" {
			bio = *u.Bio
		}
		lvl := level.ForCommentCount(r.discovery.CommentCount(ctx, u.TelegramID))
		fmt.Fprintf(&b, "• %s %s (%d⭐, %d followers)\n  %s\n\n",
			lvl.Symbol, u.Username, u.Reputation, len(u.Followers), bio)
	}
	r.replyMarkup(ctx, chatID, b.String(), browseUsersKeyboard(users))
}

func (r *Router) showFollowList(ctx context.Context, chatID, userID int64, followers bool) {
	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	title := "👥 *Following*"
	ids := user.Following
	if followers {
		title = "👥 *Followers*"
		ids = user.Followers
	}
	if len(ids) == 0 {
		r.reply(ctx, chatID, title+"\n\nNobody here yet.")
		return
	}
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for _, id := range ids {
		name := fmt.Sprintf("User %d", id)
		if u, err := r.profiles.Get(ctx, id); err == nil {
			name = u.Username
		}
		fmt.Fprintf(&b, "• %s\n", name)
	}
	r.reply(ctx, chatID, b.String())
}

func (r *Router) showMyConfessions(ctx context.Context, chatID, userID int64) {
	mine, err := r.confessions.ByAuthor(ctx, userID, 10)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(mine) == 0 {
		r.reply(ctx, chatID, "📝 *My Confessions*\n\nYou have not submitted any confessions yet.")
		return
	}
	var b strings.Builder
	b.WriteString("📝 *My Confessions*\n\n")
	for _, c := range mine {
		fmt.Fprintf(&b, "#%d [%s] %d 💬\n%s\n\n", c.Number, c.Status, c.TotalComments, snippet(c.Text, 80))
	}
	r.reply(ctx, chatID, b.String())
}

func (r *Router) showSettings(ctx context.Context, chatID, userID int64) {
	r.replyMarkup(ctx, chatID,
		"⚙️ *Settings*\n\n"+
			"Manage your display name, bio and notifications:",
		profileKeyboard())
}

func (r *Router) showNotificationSettings(ctx context.Context, chatID, userID int64) {
	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.replyMarkup(ctx, chatID,
		"🔔 *Notification Settings*\n\nTap a toggle to turn it on or off:",
		notificationKeyboard(user))
}

func (r *Router) handleToggleNotify(ctx context.Context, chatID, userID int64, kind string) {
	switch kind {
	case model.NotifyNewFollower, model.NotifyNewComment, model.NotifyNewConfession:
	default:
		r.showNotificationSettings(ctx, chatID, userID)
		return
	}
	user, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if err := r.profiles.SetNotification(ctx, userID, kind, !user.NotificationsEnabled(kind)); err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.showNotificationSettings(ctx, chatID, userID)
}

func (r *Router) showAbout(ctx context.Context, chatID int64) {
	r.reply(ctx, chatID,
		"ℹ️ *About Us*\n\n"+
			"An anonymous confession platform.\n\n"+
			"Features:\n"+
			"• Anonymous confessions\n"+
			"• Admin approval system\n"+
			"• User profiles\n"+
			"• Comment threads\n"+
			"• Reputation and levels\n\n"+
			"100% private and secure.")
}

func (r *Router) showRules(ctx context.Context, chatID int64) {
	r.reply(ctx, chatID,
		"📌 *Confession Rules*\n\n"+
			"✅ Be respectful\n"+
			"✅ No personal attacks\n"+
			"✅ No spam or ads\n"+
			"✅ Keep it anonymous\n"+
			"✅ No hate speech\n"+
			"✅ No illegal content\n"+
			"✅ No harassment\n"+
			"✅ Use appropriate hashtags")
}

// showThread renders one page of a confession's comment thread.
func (r *Router) showThread(ctx context.Context, chatID int64, confessionID string, page int) {
	tp, err := r.comments.ViewThread(ctx, confessionID, page)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#%d\n\n%s\n\n", tp.ConfessionNumber, tp.ConfessionText)
	if tp.Total == 0 {
		b.WriteString("💬 No comments yet. Be the first!\n")
	} else {
		fmt.Fprintf(&b, "💬 *Comments (%d)* - page %d/%d\n\n", tp.Total, tp.Page, tp.TotalPages)
		for i, c := range tp.Comments {
			lvl := level.ForCommentCount(r.discovery.CommentCount(ctx, c.UserID))
			fmt.Fprintf(&b, "%d. %s\n   - %s %s\n\n", tp.StartIndex+i+1, c.Text, lvl.Symbol, c.UserName)
		}
	}

	authorName := ""
	if c, err := r.confessions.Get(ctx, confessionID); err == nil {
		if author, err := r.profiles.Get(ctx, c.AuthorID); err == nil {
			authorName = author.Username
		}
	}
	r.replyMarkup(ctx, chatID, b.String(), threadKeyboard(tp, authorName))
}

func (r *Router) handleApprove(ctx context.Context, chatID, adminID int64, confessionID string) {
	c, err := r.confessions.Approve(ctx, adminID, confessionID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.reply(ctx, chatID, fmt.Sprintf("✅ Confession #%d approved and queued for the channel.", c.Number))
}

func (r *Router) handleRejectRequest(ctx context.Context, chatID, adminID int64, confessionID string) {
	if err := r.confessions.RequestRejection(ctx, adminID, confessionID); err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.reply(ctx, chatID, "📝 Please provide a reason for the rejection:")
}

func (r *Router) handleFollow(ctx context.Context, chatID, userID, targetID int64) {
	err := r.social.Follow(ctx, userID, targetID)
	switch {
	case errors.Is(err, model.ErrAlreadyFollowing):
		r.reply(ctx, chatID, "✅ You already follow this user.")
	case err != nil:
		r.reply(ctx, chatID, userMessage(err))
	default:
		name := "this user"
		if u, err := r.profiles.Get(ctx, targetID); err == nil {
			name = u.Username
		}
		r.reply(ctx, chatID, "✅ You are now following "+name+"!")
	}
}

func (r *Router) handleUnfollow(ctx context.Context, chatID, userID, targetID int64) {
	if err := r.social.Unfollow(ctx, userID, targetID); err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	name := "this user"
	if u, err := r.profiles.Get(ctx, targetID); err == nil {
		name = u.Username
	}
	r.reply(ctx, chatID, "❌ Unfollowed "+name)
}

func (r *Router) handleFollowAuthor(ctx context.Context, chatID, userID int64, confessionID string) {
	c, err := r.confessions.Get(ctx, confessionID)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.handleFollow(ctx, chatID, userID, c.AuthorID)
}

func (r *Router) showAdminDashboard(ctx context.Context, chatID, userID int64) {
	if !r.profiles.IsAdmin(userID) {
		r.reply(ctx, chatID, "❌ Access denied. Admin only command.")
		return
	}
	stats, err := r.discovery.Stats(ctx, true)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	r.replyMarkup(ctx, chatID, statsText(stats), adminKeyboard())
}

func (r *Router) showPendingConfessions(ctx context.Context, chatID, adminID int64) {
	pending, err := r.confessions.Pending(ctx, adminID, 10)
	if err != nil {
		r.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(pending) == 0 {
		r.reply(ctx, chatID, "📝 *Pending Confessions*\n\nNo pending confessions to review.")
		return
	}
	var b strings.Builder
	b.WriteString("📝 *Pending Confessions*\n\n")
	for _, c := range pending {
		fmt.Fprintf(&b, "• #%d: \"%s\"\n\n", c.Number, snippet(c.Text, 50))
	}
	r.replyMarkup(ctx, chatID, b.String(), pendingKeyboard(pending))
}

func (r *Router) showBotStats(ctx context.Context, chatID, adminID int64) {
	r.showAdminDashboard(ctx, chatID, adminID)
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// userMessage maps a service error onto the text shown to the user.
// Unknown errors are logged and collapsed into a generic failure.
func userMessage(err error) string {
	var cooldown *model.CooldownError
	if errors.As(err, &cooldown) {
		return fmt.Sprintf("⏳ Please wait %.0f seconds before submitting another confession.",
			cooldown.Remaining.Seconds())
	}
	switch {
	case errors.Is(err, model.ErrTextTooShort):
		return "❌ Confession too short. Minimum 5 characters."
	case errors.Is(err, model.ErrTextTooLong):
		return "❌ Confession too long. Maximum 1000 characters."
	case errors.Is(err, model.ErrCommentTooShort):
		return "❌ Comment too short. Minimum 3 characters."
	case errors.Is(err, model.ErrRateLimited):
		return "❌ Too many comments. Please wait before adding another comment."
	case errors.Is(err, model.ErrInvalidUsername):
		return "❌ Invalid username. Use 3-20 characters (letters, numbers, underscores only)."
	case errors.Is(err, model.ErrUsernameTaken):
		return "❌ Username already taken. Choose another one."
	case errors.Is(err, model.ErrBioTooLong):
		return "❌ Bio too long. Maximum 100 characters."
	case errors.Is(err, model.ErrUserBlocked):
		return "❌ Your account has been blocked by admin."
	case errors.Is(err, model.ErrCannotFollowSelf):
		return "❌ You cannot follow yourself."
	case errors.Is(err, model.ErrConfessionNotFound), errors.Is(err, model.ErrThreadNotFound):
		return "❌ Confession not found."
	case errors.Is(err, model.ErrUserNotFound):
		return "❌ User not found."
	case errors.Is(err, model.ErrAlreadyDecided):
		return "⚠️ This confession has already been reviewed."
	case errors.Is(err, model.ErrNotAdmin):
		return "❌ Access denied."
	default:
		log.Printf("[Router] Unexpected error: %v", err)
		return "❌ Something went wrong. Please try again."
	}
}
