package bot

// IsAllowed проверяет белый список; пустой список пускает всех
func (b *Bot) IsAllowed(userID int64) bool {
	if len(b.opts.AllowedUserIDs) == 0 {
		return true
	}

	for _, id := range b.opts.AllowedUserIDs {
		if id == userID {
			return true
		}
	}

	return false
}
