package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/snackx/internal/favorites"
	"github.com/desertthunder/snackx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgDetailLoaded
	MsgFavoritesChanged
	MsgToggleDone
)

type pageLoaded struct {
	page *models.SnackPage
	err  error
}

type detailLoaded struct {
	detail *models.SnackDetail
	err    error
}

type toggleDone struct {
	id  int64
	err error
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(page *models.SnackPage, err error) Msg {
	return Msg{kind: MsgPageLoaded, data: pageLoaded{page, err}}
}

// detailLoadedMsg is the constructor for [MsgDetailLoaded]
func detailLoadedMsg(detail *models.SnackDetail, err error) Msg {
	return Msg{kind: MsgDetailLoaded, data: detailLoaded{detail, err}}
}

// favoritesChangedMsg is the constructor for [MsgFavoritesChanged]
func favoritesChangedMsg(ev favorites.Event) Msg {
	return Msg{kind: MsgFavoritesChanged, data: ev}
}

// toggleDoneMsg is the constructor for [MsgToggleDone]
func toggleDoneMsg(id int64, err error) Msg {
	return Msg{kind: MsgToggleDone, data: toggleDone{id, err}}
}
