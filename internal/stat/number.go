package stat

// Number is the numeric contract a stat value must satisfy: arithmetic for
// modifier folding and a total order for clamps.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}
