package mcpserver

// ListingFormatContract describes the front matter that turns a page into a
// listing page. LLM consumers read it before editing listing pages.
const ListingFormatContract = `# Folio Listing Format

A page becomes a listing page when its YAML front matter carries a ` + "`" + `listing` + "`" + ` key.

## Forms

` + "```" + `yaml
listing: true                 # one default listing over every page in the directory
listing: posts/*.md           # one default listing over a glob
listing:                      # one listing with options
  id: posts
  type: grid                  # default | grid | table | custom
  contents: ../posts/*.md     # glob or list of globs; "!" prefix excludes
listing:                      # several listings on one page
  - id: recent
    contents: posts/*.md
  - id: talks
    contents: talks/*.md
` + "```" + `

## Options

- ` + "`" + `id` + "`" + `: letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + `, starting with a letter. Defaults to ` + "`" + `listing` + "`" + `, ` + "`" + `listing-2` + "`" + `, ...
- ` + "`" + `contents` + "`" + `: globs relative to the page. Defaults to ` + "`" + `*` + "`" + `.
- ` + "`" + `template` + "`" + `: a Go text/template file relative to the page. Implies ` + "`" + `type: custom` + "`" + `.
- ` + "`" + `sort` + "`" + `: ` + "`" + `date desc` + "`" + ` (default), ` + "`" + `title` + "`" + `, ` + "`" + `author` + "`" + `, ` + "`" + `path` + "`" + ` or any front matter field.
- ` + "`" + `max-items` + "`" + `, ` + "`" + `page-size` + "`" + `: non-negative integers.
- ` + "`" + `filter-ui` + "`" + `: adds a filter box to bundled templates.
- ` + "`" + `categories` + "`" + `: adds a category sidebar when the page has a ` + "`" + `#margin-sidebar` + "`" + `.
- ` + "`" + `fields` + "`" + `: table columns, e.g. ` + "`" + `[date, title, author]` + "`" + `.
- ` + "`" + `feed` + "`" + `: ` + "`" + `true` + "`" + ` or a map with ` + "`" + `title` + "`" + `, ` + "`" + `description` + "`" + `, ` + "`" + `items` + "`" + ` and ` + "`" + `categories` + "`" + `.
  Feeds are always written as partial RSS 2.0.

## Placement

The listing is placed into a ` + "`" + `div` + "`" + ` or ` + "`" + `section` + "`" + ` whose id equals the listing id,
for example ` + "`" + `<div id="posts"></div>` + "`" + `. Other elements qualify only with a
` + "`" + `data-listing-container` + "`" + ` attribute, so heading ids such as ` + "`" + `## Posts` + "`" + ` are ignored.
Without a container the listing is appended to ` + "`" + `#content` + "`" + `.

## Items

Item metadata comes from each matched page's front matter: ` + "`" + `title` + "`" + `, ` + "`" + `date` + "`" + `,
` + "`" + `author` + "`" + `, ` + "`" + `description` + "`" + `, ` + "`" + `categories` + "`" + ` (or ` + "`" + `tags` + "`" + `), ` + "`" + `image` + "`" + ` and ` + "`" + `draft` + "`" + `.
Drafts are never listed. Upload item images with the ` + "`" + `upload_asset` + "`" + ` tool.
`
