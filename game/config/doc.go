// Package config provides preset theme management for Jigsaw Studio.
//
// A theme is a named artwork subject that a player can pick instead of
// typing a prompt. Four themes are built in; more can be added as JSON files
// in a themes directory:
//
//	{
//	  "id": "lighthouse",
//	  "name": "Lighthouse",
//	  "prompt": "A lighthouse on a stormy cliff at dusk, oil painting",
//	  "icon": "fa-water"
//	}
//
// A file named after a built-in id replaces that built-in theme.
//
// Usage:
//
//	manager, err := config.NewManager("themes")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	theme, err := manager.LoadTheme("neon_city")
//	themes, err := manager.ListThemes()
package config
