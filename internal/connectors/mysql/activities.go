package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"agenda-activites-report-ui/internal/config"
	"agenda-activites-report-ui/internal/report"
)

// Store reads the activities snapshot from the ETL-owned MySQL table
// instead of the published JSON file.
type Store struct {
	db           *sql.DB
	table        string
	queryTimeout time.Duration
}

// NewStore creates a MySQL-backed activities store.
func NewStore(cfg config.Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	table := strings.TrimSpace(cfg.DBTable)
	if table == "" {
		table = "activities"
	}

	return &Store{db: db, table: table, queryTimeout: cfg.DBQueryTimeout}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Name() string { return "mysql" }

// Fetch loads the full activity set. NULL columns scan to blank fields,
// mirroring absent keys in the JSON export.
func (s *Store) Fetch(ctx context.Context) ([]report.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
SELECT
  code_activite, titre, objectif, livrable_attendu, type_activite,
  pilier, bureau, responsable, unites_impliquees,
  date_debut, date_fin, statut_planificateur, statut_suivi,
  risque_priorite, avancement_pct, taux_avancement_calc, overdue,
  commentaire_suivi, validation, commentaire_validation,
  submission_time, date_mise_a_jour
FROM %s;
`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]report.Activity, 0, 256)
	for rows.Next() {
		var (
			a                       report.Activity
			code, titre, objectif   sql.NullString
			livrable, typ, pilier   sql.NullString
			bureau, resp, unites    sql.NullString
			dateDebut, dateFin      sql.NullString
			statutPlanif, statutSui sql.NullString
			risque, avancement      sql.NullString
			taux, overdue           sql.NullString
			commentaire, validation sql.NullString
			commentaireVal          sql.NullString
			submissionTime, maj     sql.NullString
		)
		if err := rows.Scan(
			&code, &titre, &objectif, &livrable, &typ,
			&pilier, &bureau, &resp, &unites,
			&dateDebut, &dateFin, &statutPlanif, &statutSui,
			&risque, &avancement, &taux, &overdue,
			&commentaire, &validation, &commentaireVal,
			&submissionTime, &maj,
		); err != nil {
			return nil, err
		}

		a.CodeActivite = code.String
		a.Titre = titre.String
		a.Objectif = objectif.String
		a.LivrableAttendu = livrable.String
		a.TypeActivite = typ.String
		a.Pilier = pilier.String
		a.Bureau = bureau.String
		a.Responsable = resp.String
		if unites.Valid && strings.TrimSpace(unites.String) != "" {
			a.UnitesImpliquees = strings.Fields(unites.String)
		}
		a.DateDebut = dateDebut.String
		a.DateFin = dateFin.String
		a.StatutPlanificateur = statutPlanif.String
		a.StatutSuivi = statutSui.String
		a.RisquePriorite = risque.String
		a.AvancementPct = report.Num(avancement.String)
		a.TauxAvancementCalc = report.Num(taux.String)
		a.Overdue = report.Num(overdue.String)
		a.CommentaireSuivi = commentaire.String
		a.Validation = validation.String
		a.CommentaireValidation = commentaireVal.String
		a.SubmissionTime = submissionTime.String
		a.DateMiseAJour = maj.String

		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceStats is a lightweight availability probe for the status endpoint.
func (s *Store) ServiceStats(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s;`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return nil, err
	}
	return map[string]any{
		"table":      s.table,
		"activities": count,
	}, nil
}
