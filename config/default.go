package config

// DefaultSource is written to a fresh widget directory. It reproduces the
// classic face: a large 12-hour clock with weekday, month, day, year and
// am/pm stacked to its right.
const DefaultSource = `-- clocklet configuration
--
-- color     text color, #RRGGBB
-- alpha     text opacity, 0-255
-- caps      upper-case all text
-- width     canvas width in pixels
-- height    canvas height in pixels
-- fonts     names usable in position expressions
-- displays  the fields, drawn in order:
--   format  strftime pattern of the text
--   font    a name from fonts or a "Face/Size" font
--   x_pos   number, or an expression evaluated on every redraw
--   y_pos   number, or an expression evaluated on every redraw
--   name    optional; lets expressions write name.width, name.text ...
--
-- Expressions may call get_time(pattern), text_width(font, text) and
-- text_height(font, text).

local clock_width = "text_width(large_text, get_time('%l:%M'))"
local ampm_y = "(text_height(medium_text, get_time('%a')) * 2 + text_height(date_text, get_time('%d'))) - 2"

return {
  color = "#FFFFFF",
  alpha = 255,
  caps = true,
  width = 290,
  height = 120,

  fonts = {
    large_text = "PixelFont/75",
    medium_text = "PixelFont/20",
    date_text = "PixelFont/30",
    year_text = "PixelFont/15",
  },

  displays = {
    { format = "%l:%M", x_pos = 0, y_pos = 0, font = "large_text" },
    { format = "%a", x_pos = clock_width, y_pos = 5, font = "medium_text" },
    { format = "%b", x_pos = clock_width,
      y_pos = "text_height(medium_text, get_time('%a')) + 4", font = "medium_text" },
    { format = "%d", x_pos = clock_width,
      y_pos = "(text_height(medium_text, get_time('%a')) * 2) + 1", font = "date_text" },
    { format = "%Y", x_pos = clock_width,
      y_pos = "(text_height(medium_text, get_time('%a')) * 2 + text_height(date_text, get_time('%d'))) - 2",
      font = "year_text" },
    { format = "%p",
      x_pos = "text_width(large_text, get_time('%l:%M')) - text_width(year_text, get_time('%p')) - 2",
      y_pos = ampm_y, font = "year_text" },
  },
}
`
