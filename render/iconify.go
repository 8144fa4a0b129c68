package render

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	svgNamespace   = "http://www.w3.org/2000/svg"
	xlinkNamespace = "http://www.w3.org/1999/xlink"

	defaultIconSize = 16
)

// iconifyIcon is a single icon in the Iconify JSON format.
type iconifyIcon struct {
	Body   *string  `json:"body"`
	Left   float64  `json:"left"`
	Top    float64  `json:"top"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Rotate int      `json:"rotate"`
	HFlip  bool     `json:"hFlip"`
	VFlip  bool     `json:"vFlip"`
}

type viewBox struct {
	left, top, width, height float64
}

// iconifySVG renders an Iconify JSON icon as standalone SVG markup with a
// height of 1em.
func iconifySVG(data []byte) (string, error) {
	var icon iconifyIcon
	if err := json.Unmarshal(data, &icon); err != nil {
		return "", fmt.Errorf("%w: decode iconify json: %v", ErrInvalidIcon, err)
	}
	if icon.Body == nil {
		return "", fmt.Errorf("%w: iconify json has no body", ErrInvalidIcon)
	}

	box := viewBox{
		left:   icon.Left,
		top:    icon.Top,
		width:  defaultIconSize,
		height: defaultIconSize,
	}
	if icon.Width != nil {
		box.width = *icon.Width
	}
	if icon.Height != nil {
		box.height = *icon.Height
	}
	if box.width <= 0 || box.height <= 0 {
		return "", fmt.Errorf("%w: iconify json has an empty view box", ErrInvalidIcon)
	}

	body := transformBody(*icon.Body, &box, icon.HFlip, icon.VFlip, icon.Rotate)

	var sb strings.Builder
	sb.WriteString(`<svg xmlns="` + svgNamespace + `"`)
	if strings.Contains(body, "xlink:") {
		sb.WriteString(` xmlns:xlink="` + xlinkNamespace + `"`)
	}
	fmt.Fprintf(&sb, ` width="%sem" height="1em" viewBox="%s %s %s %s">`,
		formatNumber(math.Ceil(box.width/box.height*100)/100),
		formatNumber(box.left), formatNumber(box.top),
		formatNumber(box.width), formatNumber(box.height))
	sb.WriteString(body)
	sb.WriteString("</svg>")
	return sb.String(), nil
}

// transformBody wraps body in a group applying the flips and quarter turns
// of the icon, and updates box to the transformed view box.
func transformBody(body string, box *viewBox, hFlip, vFlip bool, rotate int) string {
	var transforms []string

	if hFlip {
		if vFlip {
			rotate += 2
		} else {
			transforms = append(transforms,
				"translate("+formatNumber(box.width+box.left)+" "+formatNumber(0-box.top)+")",
				"scale(-1 1)")
			box.left, box.top = 0, 0
		}
	} else if vFlip {
		transforms = append(transforms,
			"translate("+formatNumber(0-box.left)+" "+formatNumber(box.height+box.top)+")",
			"scale(1 -1)")
		box.left, box.top = 0, 0
	}

	rotate %= 4
	if rotate < 0 {
		rotate += 4
	}
	switch rotate {
	case 1:
		c := formatNumber(box.height/2 + box.top)
		transforms = append([]string{"rotate(90 " + c + " " + c + ")"}, transforms...)
	case 2:
		transforms = append([]string{"rotate(180 " +
			formatNumber(box.width/2+box.left) + " " +
			formatNumber(box.height/2+box.top) + ")"}, transforms...)
	case 3:
		c := formatNumber(box.width/2 + box.left)
		transforms = append([]string{"rotate(-90 " + c + " " + c + ")"}, transforms...)
	}

	if rotate%2 == 1 {
		box.left, box.top = box.top, box.left
		box.width, box.height = box.height, box.width
	}

	if len(transforms) == 0 {
		return body
	}
	return `<g transform="` + strings.Join(transforms, " ") + `">` + body + "</g>"
}

// formatNumber prints f the shortest way that round trips, without an
// exponent.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
