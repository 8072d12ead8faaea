package dyld

// ABI names the two private loader routines of one dyld generation. Both take
// an image handle and return its load bias and its mach header.
type ABI struct {
	Name       string
	Slide      string
	MachHeader string
}

var ImageLoaderMachO = ABI{
	Name:       "ImageLoaderMachO",
	Slide:      "__ZNK16ImageLoaderMachO8getSlideEv",
	MachHeader: "__ZNK16ImageLoaderMachO10machHeaderEv",
}

var DefaultABIs = []ABI{ImageLoaderMachO}
