package scraper

import (
	"fmt"
	"strings"
)

// itemHTML renders one listing item the way the site does.
func itemHTML(title, rating, when string) string {
	return fmt.Sprintf(`
<div class="doulist-item" id="item1">
  <div class="mod">
    <div class="bd doulist-subject">
      <div class="post">
        <a href="https://movie.douban.com/subject/1/" target="_blank">
          <img width="100" src="https://img.example/%[1]s.jpg" />
        </a>
      </div>
      <div class="title">
        <a href="https://movie.douban.com/subject/1/" target="_blank">
          %[1]s
        </a>
      </div>
      <div class="rating">
        <span class="allstar45"></span>
        <span class="rating_nums">%[2]s</span>
        <span>(1000人评价)</span>
      </div>
      <div class="abstract">
        导演: Someone
        <br />
        主演: %[1]s
        <br />

        类型: 剧情
      </div>
    </div>
    <div class="actions">
      <time class="time">%[3]s</time>
    </div>
  </div>
</div>`, title, rating, when)
}

// malformedItemHTML is an item without its actions block.
func malformedItemHTML(title string) string {
	return fmt.Sprintf(`
<div class="doulist-item">
  <div class="title"><a href="#">%s</a></div>
</div>`, title)
}

func pageHTML(items ...string) string {
	return `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body><div class="article">` +
		strings.Join(items, "\n") + `</div></body></html>`
}
