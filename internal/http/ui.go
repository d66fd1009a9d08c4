package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="fr">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Agenda des activités &mdash; Tableau de bord</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
  <style>
    @import url("https://fonts.googleapis.com/css?family=Open+Sans:300,400,600,700");

    :root {
      --brand: #1f6fb2;
      --brand-2: #2a86cf;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --line-soft: #eee;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --warn-bg: #fcf8e3;
      --warn-text: #8a6d3b;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    header {
      background: linear-gradient(to right, var(--brand) 0, var(--brand-2) 100%);
      border-bottom: 1px solid #18517f;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
      color: #fff;
    }

    .container {
      margin: 0 auto;
      padding: 0 15px;
      width: 100%;
      max-width: 1480px;
    }

    .header-inner {
      min-height: 64px;
      display: flex;
      align-items: center;
      justify-content: space-between;
    }

    .header-inner h1 { font-size: 19px; font-weight: 600; margin: 0; }
    .header-inner .sub { font-size: 12px; opacity: 0.85; }

    .kpis {
      display: grid;
      grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
      gap: 12px;
      margin: 18px 0;
    }

    .kpi {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      padding: 14px 16px;
    }

    .kpi .label { color: var(--muted); font-size: 12px; text-transform: uppercase; }
    .kpi .value { font-size: 26px; font-weight: 700; margin-top: 2px; }
    .kpi.bad .value { color: var(--bad-text); }
    .kpi.warn .value { color: var(--warn-text); }

    .panel {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      margin-bottom: 18px;
    }

    .panel h2 {
      margin: 0;
      padding: 10px 14px;
      font-size: 14px;
      font-weight: 600;
      background: var(--head);
      border-bottom: 1px solid var(--line);
    }

    .panel .body { padding: 14px; }

    .charts {
      display: grid;
      grid-template-columns: 1fr 1fr;
      gap: 18px;
    }
    @media (max-width: 900px) { .charts { grid-template-columns: 1fr; } }

    .filters {
      display: flex;
      flex-wrap: wrap;
      gap: 8px;
      align-items: center;
    }

    .filters select, .filters input {
      border: 1px solid var(--line);
      border-radius: 3px;
      padding: 6px 8px;
      font-size: 13px;
      background: #fff;
    }

    .filters input[type="search"] { min-width: 220px; }

    table {
      border-collapse: collapse;
      width: 100%;
      font-size: 13px;
    }

    th, td {
      border-bottom: 1px solid var(--line-soft);
      padding: 7px 9px;
      text-align: left;
      vertical-align: top;
    }

    thead th { background: var(--head); position: sticky; top: 0; }

    .badge {
      display: inline-block;
      border-radius: 3px;
      padding: 2px 7px;
      font-size: 12px;
      white-space: nowrap;
    }
    .badge.ok { background: var(--ok-bg); color: var(--ok-text); }
    .badge.warn { background: var(--warn-bg); color: var(--warn-text); }
    .badge.bad { background: var(--bad-bg); color: var(--bad-text); }

    .muted { color: var(--muted); }
    .error-banner {
      background: var(--bad-bg);
      color: var(--bad-text);
      border: 1px solid #ebccd1;
      border-radius: 4px;
      padding: 10px 14px;
      margin: 18px 0;
      display: none;
    }

    footer { color: var(--muted); font-size: 12px; padding: 10px 0 24px; }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div>
        <h1>Agenda des activit&eacute;s &mdash; Tableau de bord</h1>
        <div class="sub">Suivi planification, retards et risques</div>
      </div>
      <div class="sub" id="snapshot-info">&nbsp;</div>
    </div>
  </header>

  <div class="container">
    <div class="error-banner" id="error-banner"></div>

    <div class="kpis">
      <div class="kpi"><div class="label">Activit&eacute;s</div><div class="value" id="kpi-total">&ndash;</div></div>
      <div class="kpi bad"><div class="label">En retard</div><div class="value" id="kpi-overdue">&ndash;</div></div>
      <div class="kpi warn"><div class="label">&Agrave; risque</div><div class="value" id="kpi-risk">&ndash;</div></div>
      <div class="kpi"><div class="label">Avec suivi</div><div class="value" id="kpi-followup">&ndash;</div></div>
      <div class="kpi"><div class="label">Avancement moyen</div><div class="value" id="kpi-progress">&ndash;</div></div>
    </div>

    <div class="charts">
      <div class="panel">
        <h2>R&eacute;partition par <select id="cat-by">
          <option value="pilier">pilier</option>
          <option value="bureau">bureau</option>
          <option value="type">type d&rsquo;activit&eacute;</option>
          <option value="statut_planif">statut</option>
        </select></h2>
        <div class="body"><canvas id="chart-categories" height="240"></canvas></div>
      </div>
      <div class="panel">
        <h2>Tendance par <select id="trend-bucket">
          <option value="month">mois</option>
          <option value="week">semaine</option>
        </select></h2>
        <div class="body"><canvas id="chart-trend" height="240"></canvas></div>
      </div>
    </div>

    <div class="panel">
      <h2>Top activit&eacute;s &agrave; risque</h2>
      <div class="body" style="overflow-x:auto">
        <table>
          <thead>
            <tr><th>Code</th><th>Activit&eacute;</th><th>Pilier</th><th>Bureau</th><th>&Eacute;ch&eacute;ance</th><th>Statut</th><th>Avancement</th><th>Score</th></tr>
          </thead>
          <tbody id="risk-rows"><tr><td colspan="8" class="muted">Chargement&hellip;</td></tr></tbody>
        </table>
      </div>
    </div>

    <div class="panel">
      <h2>Toutes les activit&eacute;s</h2>
      <div class="body">
        <div class="filters" id="filters">
          <input type="search" id="f-query" placeholder="Recherche libre&hellip;" />
          <select id="f-pilier"><option value="">Pilier : tous</option></select>
          <select id="f-bureau"><option value="">Bureau : tous</option></select>
          <select id="f-statut"><option value="">Statut : tous</option></select>
          <select id="f-scope">
            <option value="all">Port&eacute;e : toutes</option>
            <option value="overdue">En retard</option>
            <option value="withFollowup">Avec suivi</option>
            <option value="risk">Priorit&eacute; &eacute;lev&eacute;e</option>
          </select>
          <input type="date" id="f-from" />
          <input type="date" id="f-to" />
          <span class="muted" id="table-count"></span>
        </div>
        <div style="overflow-x:auto; max-height: 480px; margin-top: 10px">
          <table>
            <thead>
              <tr><th>Code</th><th>Activit&eacute;</th><th>Pilier</th><th>Bureau</th><th>D&eacute;but</th><th>&Eacute;ch&eacute;ance</th><th>Statut</th><th>Avancement</th><th>Suivi</th></tr>
            </thead>
            <tbody id="activity-rows"><tr><td colspan="9" class="muted">Chargement&hellip;</td></tr></tbody>
          </table>
        </div>
      </div>
    </div>

    <footer>Donn&eacute;es rafra&icirc;chies automatiquement c&ocirc;t&eacute; serveur.</footer>
  </div>

  <script>
    "use strict";

    var charts = {};

    function esc(v) {
      return String(v == null ? "" : v)
        .replace(/&/g, "&amp;").replace(/</g, "&lt;").replace(/>/g, "&gt;");
    }

    function showError(msg) {
      var el = document.getElementById("error-banner");
      el.textContent = msg;
      el.style.display = "block";
    }

    function getJSON(url) {
      return fetch(url).then(function (resp) {
        return resp.json().then(function (body) {
          if (!resp.ok) {
            throw new Error(body && body.error ? body.error : ("HTTP " + resp.status));
          }
          return body;
        });
      });
    }

    function filterQuery() {
      var params = new URLSearchParams();
      var q = document.getElementById("f-query").value.trim();
      if (q) params.set("q", q);
      var pilier = document.getElementById("f-pilier").value;
      if (pilier) params.set("pilier", pilier);
      var bureau = document.getElementById("f-bureau").value;
      if (bureau) params.set("bureau", bureau);
      var statut = document.getElementById("f-statut").value;
      if (statut) params.set("statut_planificateur", statut);
      var scope = document.getElementById("f-scope").value;
      if (scope && scope !== "all") params.set("scope", scope);
      var from = document.getElementById("f-from").value;
      if (from) params.set("date_from", from);
      var to = document.getElementById("f-to").value;
      if (to) params.set("date_to", to);
      return params;
    }

    function statusBadge(row) {
      var statut = row.statut || row.statut_suivi || row.statut_planificateur || "";
      var low = statut.toLowerCase();
      var cls = "ok";
      if (low.indexOf("retard") !== -1 || row.overdue === "1" || row.overdue === 1) cls = "bad";
      else if (low.indexOf("report") !== -1 || low.indexOf("annul") !== -1) cls = "warn";
      return '<span class="badge ' + cls + '">' + esc(statut || "&ndash;") + "</span>";
    }

    function pct(row) {
      var v = row.avancement != null ? row.avancement : row.avancement_pct;
      if (v == null || v === "") return "&ndash;";
      return esc(v) + "%";
    }

    function loadKPIs() {
      return getJSON("/api/v1/kpis").then(function (body) {
        var d = body.data;
        document.getElementById("kpi-total").textContent = d.total;
        document.getElementById("kpi-overdue").textContent = d.overdue;
        document.getElementById("kpi-risk").textContent = d.at_risk;
        document.getElementById("kpi-followup").textContent = d.with_followup;
        document.getElementById("kpi-progress").textContent =
          d.avg_progress_pct == null ? "–" : Math.round(d.avg_progress_pct) + "%";
        var m = body.meta;
        document.getElementById("snapshot-info").textContent =
          "Source : " + m.source + " · " + m.records + " enregistrements";
      });
    }

    function loadCategories() {
      var by = document.getElementById("cat-by").value;
      return getJSON("/api/v1/charts/categories?by=" + encodeURIComponent(by)).then(function (body) {
        var labels = body.data.map(function (p) { return p.label; });
        var values = body.data.map(function (p) { return p.count; });
        if (charts.categories) charts.categories.destroy();
        charts.categories = new Chart(document.getElementById("chart-categories"), {
          type: "bar",
          data: { labels: labels, datasets: [{ label: "Activités", data: values, backgroundColor: "#2a86cf" }] },
          options: { plugins: { legend: { display: false } }, scales: { y: { beginAtZero: true, ticks: { precision: 0 } } } }
        });
      });
    }

    function loadTrend() {
      var bucket = document.getElementById("trend-bucket").value;
      return getJSON("/api/v1/charts/trend?bucket=" + encodeURIComponent(bucket)).then(function (body) {
        if (charts.trend) charts.trend.destroy();
        charts.trend = new Chart(document.getElementById("chart-trend"), {
          type: "line",
          data: {
            labels: body.data.labels,
            datasets: [{ label: "Démarrages", data: body.data.values, borderColor: "#1f6fb2", tension: 0.25, fill: false }]
          },
          options: { plugins: { legend: { display: false } }, scales: { y: { beginAtZero: true, ticks: { precision: 0 } } } }
        });
      });
    }

    function loadRisk() {
      return getJSON("/api/v1/risk/top").then(function (body) {
        var rows = body.data || [];
        var html = rows.map(function (r) {
          return "<tr>" +
            "<td>" + esc(r.code_activite) + "</td>" +
            "<td>" + esc(r.titre) + "</td>" +
            "<td>" + esc(r.pilier) + "</td>" +
            "<td>" + esc(r.bureau) + "</td>" +
            "<td>" + esc(r.date_fin) + "</td>" +
            "<td>" + statusBadge(r) + "</td>" +
            "<td>" + pct(r) + "</td>" +
            "<td><strong>" + esc(r.score) + "</strong></td>" +
            "</tr>";
        }).join("");
        document.getElementById("risk-rows").innerHTML =
          html || '<tr><td colspan="8" class="muted">Aucune activité à risque.</td></tr>';
      });
    }

    function loadActivities() {
      var params = filterQuery();
      return getJSON("/api/v1/activities?" + params.toString()).then(function (body) {
        var rows = body.data || [];
        var html = rows.map(function (r) {
          return "<tr>" +
            "<td>" + esc(r.code_activite) + "</td>" +
            "<td>" + esc(r.titre) + "</td>" +
            "<td>" + esc(r.pilier) + "</td>" +
            "<td>" + esc(r.bureau) + "</td>" +
            "<td>" + esc(r.date_debut) + "</td>" +
            "<td>" + esc(r.date_fin) + "</td>" +
            "<td>" + statusBadge(r) + "</td>" +
            "<td>" + pct(r) + "</td>" +
            "<td>" + esc(r.commentaire_suivi) + "</td>" +
            "</tr>";
        }).join("");
        document.getElementById("activity-rows").innerHTML =
          html || '<tr><td colspan="9" class="muted">Aucun résultat.</td></tr>';
        document.getElementById("table-count").textContent =
          body.meta.filtered + " / " + body.meta.total + " activités";
      });
    }

    function loadOptions() {
      return getJSON("/api/v1/activities/options").then(function (body) {
        var d = body.data;
        fillSelect("f-pilier", d.piliers);
        fillSelect("f-bureau", d.bureaux);
        fillSelect("f-statut", d.statuts_planificateur);
      });
    }

    function fillSelect(id, values) {
      var sel = document.getElementById(id);
      (values || []).forEach(function (v) {
        var opt = document.createElement("option");
        opt.value = v;
        opt.textContent = v;
        sel.appendChild(opt);
      });
    }

    function refreshAll() {
      Promise.all([loadKPIs(), loadCategories(), loadTrend(), loadRisk(), loadActivities()])
        .catch(function (err) { showError(err.message); });
    }

    document.getElementById("cat-by").addEventListener("change", loadCategories);
    document.getElementById("trend-bucket").addEventListener("change", loadTrend);
    ["f-pilier", "f-bureau", "f-statut", "f-scope", "f-from", "f-to"].forEach(function (id) {
      document.getElementById(id).addEventListener("change", function () {
        loadActivities().catch(function (err) { showError(err.message); });
      });
    });
    var queryTimer = null;
    document.getElementById("f-query").addEventListener("input", function () {
      clearTimeout(queryTimer);
      queryTimer = setTimeout(function () {
        loadActivities().catch(function (err) { showError(err.message); });
      }, 250);
    });

    loadOptions().catch(function (err) { showError(err.message); });
    refreshAll();
    setInterval(refreshAll, 120000);
  </script>
</body>
</html>
`
