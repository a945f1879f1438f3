package tui

type View int

const (
	ViewHeadlines View = iota
	ViewReader
)
