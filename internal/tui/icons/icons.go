// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Provides consistent iconography across different terminal capabilities

package icons

import (
	"os"
	"strings"
	"sync"
)

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// nerdFontTerminals typically ship with a patched font
var nerdFontTerminals = []string{
	"iTerm.app",
	"alacritty",
	"WezTerm",
	"kitty",
	"ghostty",
}

// detectNerdFonts checks if Nerd Fonts should be used
func detectNerdFonts() bool {
	// Explicit override via environment variable
	if env := os.Getenv("BLACKBOX_NERD_FONTS"); env != "" {
		return env == "1" || strings.ToLower(env) == "true"
	}

	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")
	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	return os.Getenv("NERD_FONTS") == "1"
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

// Icon definitions - Nerd Font codepoints with Unicode fallbacks
var (
	// Domain
	Camera   = Icon{"\U000F0100", "◉"} // nf-md-camera
	Calendar = Icon{"\U000F00ED", "▦"} // nf-md-calendar
	Film     = Icon{"\U000F0230", "▤"} // nf-md-filmstrip
	Lock     = Icon{"\U000F033E", "⚿"} // nf-md-lock
	Add      = Icon{"\U000F0415", "+"} // nf-md-plus

	// Playback
	Play  = Icon{"\U000F040A", "▶"} // nf-md-play
	Stop  = Icon{"\U000F04DB", "■"} // nf-md-stop
	Done  = Icon{"\U000F012C", "✓"} // nf-md-check
	Queue = Icon{"\U000F0411", "≡"} // nf-md-playlist_play

	// Status indicators
	CheckOK  = Icon{"\uF49E", "✓"} // nf-oct-check_circle
	Warning  = Icon{"\uF421", "⚠"} // nf-oct-alert
	Critical = Icon{"\uF52F", "✗"} // nf-oct-x_circle
	Info     = Icon{"\uF449", "ℹ"} // nf-oct-info

	// Actions
	Refresh = Icon{"\U000F0450", "↻"} // nf-md-refresh
	Back    = Icon{"\U000F004D", "←"} // nf-md-arrow_left
	Logout  = Icon{"\U000F0343", "⇥"} // nf-md-logout
	Quit    = Icon{"\U000F05FC", "×"} // nf-md-exit_to_app

	// Application
	App = Camera
)
