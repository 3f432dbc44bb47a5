// Package autoload registers every built-in channel.
package autoload

import (
	_ "codenames/pkg/channels/telegram"
	_ "codenames/pkg/channels/web"
)
