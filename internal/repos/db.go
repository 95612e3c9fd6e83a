package repos

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"indieconverters/internal/domain"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A :memory: database lives per connection; keep one so every query
	// sees the same schema.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline catalog if DB is empty (genres/authors/books/services)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
PRAGMA foreign_keys = ON;

-- Genres
CREATE TABLE IF NOT EXISTS genres(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  label TEXT NOT NULL
);

-- Authors
CREATE TABLE IF NOT EXISTS authors(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  short_bio TEXT,
  long_bio TEXT,
  photo_url TEXT
);
CREATE INDEX IF NOT EXISTS idx_authors_name ON authors(LOWER(display_name));

-- Books
CREATE TABLE IF NOT EXISTS books(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  subtitle TEXT,
  description TEXT,
  cover_url TEXT,
  pub_date TEXT,
  formats_json TEXT NOT NULL DEFAULT '[]',
  keywords_json TEXT NOT NULL DEFAULT '[]',
  tags_json TEXT NOT NULL DEFAULT '[]',
  is_published INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_books_title    ON books(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_books_pub_date ON books(pub_date);

CREATE TABLE IF NOT EXISTS books_authors(
  book_id   TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
  position  INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (book_id, author_id)
);

CREATE TABLE IF NOT EXISTS books_genres(
  book_id  TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  genre_id TEXT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
  PRIMARY KEY (book_id, genre_id)
);

-- Publishing services
CREATE TABLE IF NOT EXISTS services(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  short_description TEXT,
  icon_url TEXT,
  price TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  display_order INTEGER NOT NULL DEFAULT 0
);

-- Carts: exactly one owner reference, at most one cart per owner
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_id TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  CHECK ((user_id IS NULL) <> (session_id IS NULL))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user    ON carts(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_session ON carts(session_id);

CREATE TABLE IF NOT EXISTS cart_items(
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  item_type TEXT NOT NULL CHECK (item_type IN ('book','service')),
  item_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  image_url TEXT,
  description TEXT,
  quantity INTEGER NOT NULL CHECK (quantity BETWEEN 1 AND 9999),
  format TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f','now')),
  UNIQUE (cart_id, item_type, item_id, format)
);
CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON cart_items(cart_id);

-- Users
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));
`

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM books`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	slog.Info("seeding demo catalog", "tables", "genres,authors,books,services")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO genres(id,slug,label) VALUES
	  ('g-fantasy','fantasy','Fantasy'),
	  ('g-thriller','thriller','Thriller'),
	  ('g-memoir','memoir','Memoir'),
	  ('g-ya','young-adult','Young Adult')`)

	tx.MustExec(`INSERT INTO authors(id,slug,display_name,short_bio) VALUES
	  ('a-mara','mara-quill','Mara Quill','Writes wolves, winters and the people caught between them.'),
	  ('a-jon','jon-ashby','Jon Ashby','Former night-shift nurse turned thriller writer.'),
	  ('a-ines','ines-valle','Ines Valle','Memoirist and essayist.')`)

	tx.MustExec(`INSERT INTO books(id,slug,title,description,cover_url,pub_date,formats_json,keywords_json) VALUES
	  ('b1','wolf-so-grim','Wolf So Grim','A dark, gripping fantasy of a winter pack and the girl who runs with it. Book 1 of the Grimwood series.','/static/covers/wolf-so-grim.jpg','2024-11-05','["Hardcover","Paperback","eBook"]','["wolves","winter","series"]'),
	  ('b2','the-night-ward','The Night Ward','A fast-paced hospital thriller. Debut novel from an award finalist.','/static/covers/the-night-ward.jpg','2023-03-14','["Paperback","eBook","Audiobook"]','["thriller","hospital"]'),
	  ('b3','salt-and-summer','Salt and Summer','An uplifting memoir of one summer on a tropical island.','/static/covers/salt-and-summer.jpg','2021-06-01','["eBook"]','["memoir","beach"]')`)

	tx.MustExec(`INSERT INTO books_authors(book_id,author_id,position) VALUES
	  ('b1','a-mara',0),('b2','a-jon',0),('b3','a-ines',0)`)
	tx.MustExec(`INSERT INTO books_genres(book_id,genre_id) VALUES
	  ('b1','g-fantasy'),('b1','g-ya'),('b2','g-thriller'),('b3','g-memoir')`)

	tx.MustExec(`INSERT INTO services(id,slug,name,short_description,price,display_order) VALUES
	  ('s-edit','developmental-edit','Developmental Edit','Structural feedback on your full manuscript.','499.00',1),
	  ('s-cover','cover-design','Cover Design','Custom front cover for print and eBook.','299.00',2),
	  ('s-convert','ebook-conversion','eBook Conversion','EPUB and Kindle-ready files.','14.00',3)`)

	return tx.Commit()
}

// seedUsers ensures one USER and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-reader", "reader@indieconverters.test", "Reader", domain.RoleUser, "Passw0rd!"),
		mk("u-admin", "admin@indieconverters.test", "Admin", domain.RoleAdmin, "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
