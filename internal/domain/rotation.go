package domain

// RotationRange is a fixed, inclusive range of rotation numbers reserved for
// one sport. Every range is exactly 1000 integers wide and ranges never
// overlap. This is read-only reference configuration used by external
// validators to classify incoming market identifiers.
type RotationRange struct {
	Sport string
	Low   int
	High  int
}

// RotationRanges lists the ten reserved sport ranges in ascending order.
var RotationRanges = [10]RotationRange{
	{Sport: "football", Low: 1000, High: 1999},
	{Sport: "basketball", Low: 2000, High: 2999},
	{Sport: "baseball", Low: 3000, High: 3999},
	{Sport: "hockey", Low: 4000, High: 4999},
	{Sport: "soccer", Low: 5000, High: 5999},
	{Sport: "tennis", Low: 6000, High: 6999},
	{Sport: "golf", Low: 7000, High: 7999},
	{Sport: "mma", Low: 8000, High: 8999},
	{Sport: "boxing", Low: 9000, High: 9999},
	{Sport: "motorsport", Low: 10000, High: 10999},
}

// SportForRotation returns the sport a rotation number belongs to, or ""
// when the number falls outside every reserved range.
func SportForRotation(n int) string {
	for _, r := range RotationRanges {
		if n >= r.Low && n <= r.High {
			return r.Sport
		}
	}
	return ""
}
