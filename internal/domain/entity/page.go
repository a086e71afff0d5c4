package entity

type Screenshot struct {
	Name     string
	Path     string
	FullPage bool
	Width    int
	Height   int
}

// SearchControls are the three selectors a search flow goes through.
type SearchControls struct {
	Trigger string
	Input   string
	Submit  string
}
