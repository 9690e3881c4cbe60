package printing

type Settings struct {
	DeviceName      string
	Copies          int
	Silent          bool
	PrintBackground bool
}

func (s Settings) withDefaults() Settings {
	if s.Copies < 1 {
		s.Copies = 1
	}
	return s
}
