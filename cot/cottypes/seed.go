package cottypes

// SeedTypes is a small working subset of the CoT type taxonomy,
// sufficient to exercise the bridge's classification mapping and
// conformance tests without claiming full MIL-STD-2525 coverage
// (an explicit Non-goal).
var SeedTypes = []Type{
	{Name: "a-f-A", FullName: "Friend/Air", Description: "FRIENDLY AIR TRACK"},
	{Name: "a-h-A", FullName: "Hostile/Air", Description: "HOSTILE AIR TRACK"},
	{Name: "a-u-A", FullName: "Unknown/Air", Description: "UNKNOWN AIR TRACK"},
	{Name: "a-n-A", FullName: "Neutral/Air", Description: "NEUTRAL AIR TRACK"},
	{Name: "a-f-A-M-F-Q", FullName: "Friend/Air/UAS", Description: "FRIENDLY UAS MULTIROTOR"},
	{Name: "a-h-A-M-F-Q", FullName: "Hostile/Air/UAS", Description: "HOSTILE UAS MULTIROTOR"},
	{Name: "a-u-A-M-F-Q", FullName: "Unknown/Air/UAS", Description: "UNKNOWN UAS MULTIROTOR"},
	{Name: "a-f-G", FullName: "Friend/Ground", Description: "FRIENDLY GROUND TRACK"},
	{Name: "a-h-G", FullName: "Hostile/Ground", Description: "HOSTILE GROUND TRACK"},
	{Name: "a-u-G", FullName: "Unknown/Ground", Description: "UNKNOWN GROUND TRACK"},
	{Name: "a-f-G-E-X-N", FullName: "Gnd/Equip/Nbc Equipment", Description: "NBC EQUIPMENT"},
	{Name: "a-f-S", FullName: "Friend/Surface", Description: "FRIENDLY SURFACE TRACK"},
	{Name: "a-h-S", FullName: "Hostile/Surface", Description: "HOSTILE SURFACE TRACK"},
	{Name: "a-f-U", FullName: "Friend/Subsurface", Description: "FRIENDLY SUBSURFACE TRACK"},
	{Name: "a-u-U", FullName: "Unknown/Subsurface", Description: "UNKNOWN SUBSURFACE TRACK"},
	{Name: "a-f-P", FullName: "Friend/Space", Description: "FRIENDLY SPACE TRACK"},
	{Name: "a-u-X", FullName: "Unknown/Other", Description: "UNKNOWN OTHER DOMAIN TRACK"},
	{Name: "b-m-p-s-p-i", FullName: "Bits/Point/SPI", Description: "SENSOR POINT OF INTEREST"},
}
