package bot

import "testing"

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	StartTelegramBot(nil, "")
}
