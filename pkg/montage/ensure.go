package montage

import (
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	// Register decoders beyond imaging's builtins so deck exports in
	// less common raster formats still load.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deckproof/deckproof/pkg/errors"
)

// rasterExts lists the extensions CollectDir accepts, lowercased.
var rasterExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// CollectDir lists the raster images directly inside dir in natural
// order, so slide-2.png sorts before slide-10.png.
func CollectDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read image directory %s", dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read image directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if rasterExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no supported images in directory")
	}

	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

var naturalChunkRE = regexp.MustCompile(`\d+|\D+`)

// naturalLess compares strings chunk-wise, treating digit runs as
// numbers.
func naturalLess(a, b string) bool {
	ac := naturalChunkRE.FindAllString(a, -1)
	bc := naturalChunkRE.FindAllString(b, -1)
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if ac[i] == bc[i] {
			continue
		}
		an, aerr := strconv.Atoi(ac[i])
		bn, berr := strconv.Atoi(bc[i])
		if aerr == nil && berr == nil {
			return an < bn
		}
		return ac[i] < bc[i]
	}
	return len(ac) < len(bc)
}

func loadRaster(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open image %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image %s", path)
	}
	return img, nil
}

func baseName(path string) string {
	return filepath.Base(path)
}
